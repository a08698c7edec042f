package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"finarth/internal/agent"
	"finarth/internal/core"
	"finarth/internal/log"
	"finarth/internal/market"
	"finarth/internal/planner"
)

type goalRequest struct {
	TargetAmount   flexFloat `json:"targetAmount"`
	Years          flexInt   `json:"years"`
	CurrentSavings flexFloat `json:"currentSavings"`
	ExpectedReturn flexFloat `json:"expectedReturn"`
	InflationRate  flexFloat `json:"inflationRate"`
	RiskProfile    string    `json:"riskProfile"`
	MonthlyIncome  flexFloat `json:"monthlyIncome"`
}

type planResponse struct {
	InflatedTarget json.Number `json:"inflatedTarget"`
	FutureSavings  json.Number `json:"futureSavings"`
	RequiredCorpus json.Number `json:"requiredCorpus"`
	MonthlySIP     json.Number `json:"monthlySip"`
	TotalInvested  json.Number `json:"totalInvested"`
	Months         int         `json:"months"`
	Score          int         `json:"feasibilityScore"`
	Label          string      `json:"feasibility"`
}

func (s *Server) handlePlanGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	risk, err := core.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}

	plan, err := planner.Calculate(planner.Goal{
		TargetAmount:   float64(req.TargetAmount),
		Years:          int(req.Years),
		CurrentSavings: float64(req.CurrentSavings),
		ExpectedReturn: planner.NormalizeRate(float64(req.ExpectedReturn)),
		InflationRate:  planner.NormalizeRate(float64(req.InflationRate)),
		RiskProfile:    risk,
		MonthlyIncome:  float64(req.MonthlyIncome),
	})
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}

	NewJSONResponse().Body(planResponse{
		InflatedTarget: number(plan.InflatedTarget),
		FutureSavings:  number(plan.FutureSavings),
		RequiredCorpus: number(plan.RequiredCorpus),
		MonthlySIP:     number(plan.MonthlySIP),
		TotalInvested:  number(plan.TotalInvested),
		Months:         plan.Months,
		Score:          plan.Score,
		Label:          string(plan.Label),
	}).Write(w)
}

type insightRequest struct {
	Query  string  `json:"query"`
	UserID flexInt `json:"userId"`
}

type stepResponse struct {
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	Input       string `json:"input,omitempty"`
	Observation string `json:"observation,omitempty"`
}

type insightResponse struct {
	Insight    string         `json:"insight"`
	Steps      []stepResponse `json:"steps"`
	Iterations int            `json:"iterations"`
	Final      bool           `json:"final"`
}

func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	userID := int64(req.UserID)
	if userID > 0 && !s.authorize(w, r, userID) {
		return
	}
	if s.deps.Advisor == nil {
		writeError(w, r, log.OpRead, agent.ErrNotConfigured)
		return
	}

	insight, err := s.deps.Advisor.GenerateInsight(r.Context(), sanitizeInput(req.Query), userID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	out := insightResponse{
		Insight:    insight.Answer,
		Steps:      make([]stepResponse, 0, len(insight.Steps)),
		Iterations: insight.Iterations,
		Final:      insight.Final,
	}
	for _, st := range insight.Steps {
		out.Steps = append(out.Steps, stepResponse(st))
	}
	NewJSONResponse().Body(out).Write(w)
}

type quotesResponse struct {
	Quotes    []quoteResponse `json:"quotes"`
	Simulated bool            `json:"simulated"`
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Market == nil {
		ErrorResponse(http.StatusServiceUnavailable, "market data is not configured").Write(w)
		return
	}
	symbols, err := market.ParseSymbols(strings.TrimSpace(r.URL.Query().Get("symbols")))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	quotes, err := s.deps.Market.Quotes(r.Context(), symbols)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	out := quotesResponse{Quotes: make([]quoteResponse, 0, len(quotes)), Simulated: s.deps.Market.Simulated()}
	for _, q := range quotes {
		if q.Simulated {
			out.Simulated = true
		}
		out.Quotes = append(out.Quotes, toQuoteResponse(q))
	}
	NewJSONResponse().Body(out).Write(w)
}
