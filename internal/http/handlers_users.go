package http

import (
	"net/http"
	"strings"

	"finarth/internal/core"
	"finarth/internal/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	u, err := s.deps.Users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(authResponse{UserID: u.ID, Email: u.Email, NeedsOnboarding: u.NeedsOnboarding()}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	u, token, err := s.deps.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}

	NewJSONResponse().
		Body(authResponse{UserID: u.ID, Email: u.Email, NeedsOnboarding: u.NeedsOnboarding(), Token: token}).
		Write(w)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		BadRequestError("token is required").Write(w)
		return
	}

	u, err := s.deps.Users.Verify(r.Context(), token)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	NewJSONResponse().
		Body(map[string]any{"userId": u.ID, "verified": true}).
		Write(w)
}

type onboardingRequest struct {
	UserID               flexInt     `json:"userId"`
	FullName             string      `json:"fullName"`
	Age                  flexInt     `json:"age"`
	Occupation           string      `json:"occupation"`
	MonthlyIncome        flexDecimal `json:"monthlyIncome"`
	RiskProfile          string      `json:"riskProfile"`
	InvestmentExperience string      `json:"investmentExperience"`
	InvestmentTypes      []string    `json:"investmentTypes"`
	Objectives           []string    `json:"objectives"`
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = sanitizeInput(it)
		if it == "" {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	userID := int64(req.UserID)
	if userID <= 0 {
		writeError(w, r, log.OpOnboard, core.ErrMissingUserID)
		return
	}
	if !s.authorize(w, r, userID) {
		return
	}

	risk, err := core.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		writeError(w, r, log.OpOnboard, err)
		return
	}

	u, err := s.deps.Users.CompleteOnboarding(r.Context(), core.Onboarding{
		UserID:               userID,
		FullName:             sanitizeInput(req.FullName),
		Age:                  int(req.Age),
		Occupation:           sanitizeInput(req.Occupation),
		MonthlyIncome:        req.MonthlyIncome.Decimal,
		RiskProfile:          risk,
		InvestmentExperience: sanitizeInput(req.InvestmentExperience),
		InvestmentTypes:      cleanList(req.InvestmentTypes),
		Objectives:           cleanList(req.Objectives),
	})
	if err != nil {
		writeError(w, r, log.OpOnboard, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Onboarding completed",
		log.FieldUserID, u.ID,
		log.FieldOperation, log.OpOnboard)
	NewJSONResponse().Body(toUserResponse(u)).Write(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !s.authorize(w, r, userID) {
		return
	}

	u, err := s.deps.Users.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toUserResponse(u)).Write(w)
}
