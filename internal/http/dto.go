package http

import (
	"encoding/json"
	"time"

	"finarth/internal/core"

	"github.com/shopspring/decimal"
)

// number renders a decimal as a JSON number rather than a string.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type authResponse struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	NeedsOnboarding bool   `json:"needsOnboarding"`
	Token           string `json:"token,omitempty"`
}

type userResponse struct {
	UserID               int64       `json:"userId"`
	Email                string      `json:"email"`
	FullName             string      `json:"fullName"`
	Age                  int         `json:"age"`
	Occupation           string      `json:"occupation"`
	MonthlyIncome        json.Number `json:"monthlyIncome"`
	RiskProfile          string      `json:"riskProfile"`
	InvestmentExperience string      `json:"investmentExperience"`
	InvestmentTypes      []string    `json:"investmentTypes"`
	Objectives           []string    `json:"objectives"`
	OnboardingCompleted  bool        `json:"onboardingCompleted"`
	NeedsOnboarding      bool        `json:"needsOnboarding"`
	IsVerified           bool        `json:"isVerified"`
	CreatedAt            string      `json:"createdAt"`
}

func toUserResponse(u core.User) userResponse {
	types := u.InvestmentTypes
	if types == nil {
		types = []string{}
	}
	objectives := u.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	return userResponse{
		UserID:               u.ID,
		Email:                u.Email,
		FullName:             u.FullName,
		Age:                  u.Age,
		Occupation:           u.Occupation,
		MonthlyIncome:        number(u.MonthlyIncome),
		RiskProfile:          string(u.RiskProfile),
		InvestmentExperience: u.InvestmentExperience,
		InvestmentTypes:      types,
		Objectives:           objectives,
		OnboardingCompleted:  u.OnboardingCompleted,
		NeedsOnboarding:      u.NeedsOnboarding(),
		IsVerified:           u.IsVerified,
		CreatedAt:            timestamp(u.CreatedAt),
	}
}

type holdingResponse struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"userId"`
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	Amount    json.Number `json:"amount"`
	Date      string      `json:"date"`
	Symbol    string      `json:"symbol,omitempty"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
}

func toHoldingResponse(h core.Holding) holdingResponse {
	return holdingResponse{
		ID:        h.ID,
		UserID:    h.UserID,
		Name:      h.Name,
		Category:  h.Category,
		Amount:    number(h.Amount),
		Date:      h.Date.String(),
		Symbol:    h.Symbol,
		CreatedAt: timestamp(h.CreatedAt),
		UpdatedAt: timestamp(h.UpdatedAt),
	}
}

type quoteResponse struct {
	Symbol    string      `json:"symbol"`
	Price     json.Number `json:"price"`
	Currency  string      `json:"currency"`
	Source    string      `json:"source"`
	Simulated bool        `json:"simulated"`
	AsOf      string      `json:"asOf"`
}

func toQuoteResponse(q core.Quote) quoteResponse {
	return quoteResponse{
		Symbol:    q.Symbol,
		Price:     number(q.Price),
		Currency:  q.Currency,
		Source:    q.Source,
		Simulated: q.Simulated,
		AsOf:      timestamp(q.AsOf),
	}
}
