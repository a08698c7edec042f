// Package planner implements the goal feasibility calculator: the corpus a goal
// needs after inflation, the monthly SIP that reaches it, and a heuristic score.
package planner

import (
	"math"

	"finarth/internal/core"

	"github.com/shopspring/decimal"
)

const (
	baseScore = 70
	minScore  = 5
	maxScore  = 98

	MinYears = 1
	MaxYears = 60
)

type Label string

const (
	High   Label = "high"
	Medium Label = "moderate"
	Low    Label = "low"
)

// Goal is the calculator input. Rates are fractions (0.12 for 12%).
type Goal struct {
	TargetAmount   float64
	Years          int
	CurrentSavings float64
	ExpectedReturn float64
	InflationRate  float64
	RiskProfile    core.RiskProfile
	MonthlyIncome  float64
}

type Plan struct {
	InflatedTarget decimal.Decimal
	FutureSavings  decimal.Decimal
	RequiredCorpus decimal.Decimal
	MonthlySIP     decimal.Decimal
	TotalInvested  decimal.Decimal
	Months         int
	Score          int
	Label          Label
}

// NormalizeRate accepts either a fraction or a percentage. Values of 1 or more
// are read as percentages.
func NormalizeRate(r float64) float64 {
	if r >= 1 {
		return r / 100
	}
	return r
}

func (g Goal) Validate() error {
	if !(g.TargetAmount > 0) || math.IsInf(g.TargetAmount, 0) {
		return core.ErrInvalidTarget
	}
	if g.Years < MinYears || g.Years > MaxYears {
		return core.ErrInvalidYears
	}
	if g.CurrentSavings < 0 || math.IsNaN(g.CurrentSavings) || math.IsInf(g.CurrentSavings, 0) {
		return core.ErrInvalidAmount
	}
	if g.MonthlyIncome < 0 || math.IsNaN(g.MonthlyIncome) || math.IsInf(g.MonthlyIncome, 0) {
		return core.ErrInvalidIncome
	}
	for _, r := range []float64{g.ExpectedReturn, g.InflationRate} {
		if !(r >= 0 && r < 1) {
			return core.ErrInvalidRate
		}
	}
	switch g.RiskProfile {
	case core.Conservative, core.Moderate, core.Aggressive:
	default:
		return core.ErrInvalidRiskProfile
	}
	return nil
}

// Calculate validates g and computes its plan.
func Calculate(g Goal) (Plan, error) {
	if err := g.Validate(); err != nil {
		return Plan{}, err
	}

	years := float64(g.Years)
	inflated := g.TargetAmount * math.Pow(1+g.InflationRate, years)
	future := g.CurrentSavings * math.Pow(1+g.ExpectedReturn, years)
	corpus := math.Max(0, inflated-future)

	months := g.Years * 12
	sip := MonthlySIP(corpus, g.ExpectedReturn, months)

	total := sip * float64(months)
	if !finite(inflated, future, corpus, sip, total) {
		return Plan{}, core.ErrGoalOutOfRange
	}

	score := Score(g, sip, inflated)

	return Plan{
		InflatedTarget: money(inflated),
		FutureSavings:  money(future),
		RequiredCorpus: money(corpus),
		MonthlySIP:     money(sip),
		TotalInvested:  money(total),
		Months:         months,
		Score:          score,
		Label:          LabelFor(score),
	}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MonthlySIP is the annuity-due contribution that accumulates corpus over
// months at annualReturn compounded monthly.
func MonthlySIP(corpus, annualReturn float64, months int) float64 {
	if corpus <= 0 || months <= 0 {
		return 0
	}
	i := annualReturn / 12
	if i == 0 {
		return corpus / float64(months)
	}
	growth := math.Pow(1+i, float64(months))
	return corpus * i / ((growth - 1) * (1 + i))
}

// Score applies the fixed feasibility adjustments and clamps to [5, 98].
// For fixed g it never increases as sip grows.
func Score(g Goal, sip, inflatedTarget float64) int {
	score := baseScore

	switch {
	case g.Years < 3:
		score -= 20
	case g.Years < 5:
		score -= 10
	case g.Years >= 10:
		score += 10
	}

	switch {
	case sip > 100000:
		score -= 30
	case sip > 50000:
		score -= 20
	case sip > 25000:
		score -= 10
	case sip <= 5000:
		score += 5
	}

	if g.MonthlyIncome > 0 {
		share := sip / g.MonthlyIncome
		switch {
		case share > 0.5:
			score -= 20
		case share > 0.3:
			score -= 10
		}
	}

	if inflatedTarget > 0 {
		ratio := g.CurrentSavings / inflatedTarget
		switch {
		case ratio >= 0.5:
			score += 10
		case ratio >= 0.25:
			score += 5
		}
	}

	switch g.RiskProfile {
	case core.Aggressive:
		if g.Years >= 7 {
			score += 5
		} else {
			score -= 5
		}
	case core.Conservative:
		if g.Years >= 7 {
			score -= 5
		}
	}

	return min(max(score, minScore), maxScore)
}

func LabelFor(score int) Label {
	switch {
	case score >= 75:
		return High
	case score >= 50:
		return Medium
	default:
		return Low
	}
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
