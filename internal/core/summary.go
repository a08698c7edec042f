package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the last known price for a ticker symbol.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Currency  string
	Source    string
	Simulated bool
	AsOf      time.Time
}

// CategoryAllocation aggregates invested amounts for one category.
type CategoryAllocation struct {
	Category string
	Invested decimal.Decimal
	Weight   float64 // percent of total invested, 0-100
	Holdings int
}

// PositionQuote pairs a holding with the latest quote for its symbol.
type PositionQuote struct {
	HoldingID int64
	Name      string
	Symbol    string
	Invested  decimal.Decimal
	Quote     *Quote
}

// PortfolioSummary is the per-user view behind the dashboard heatmap.
type PortfolioSummary struct {
	UserID        int64
	TotalInvested decimal.Decimal
	Categories    []CategoryAllocation
	Positions     []PositionQuote
}
