package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"finarth/internal/core"
	"finarth/internal/market"
)

// Tool is an action the model can request with "Action: <name>".
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string, userID int64) (string, error)
}

type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) ([]core.Quote, error)
}

type SummarySource interface {
	Summary(ctx context.Context, userID int64) (core.PortfolioSummary, error)
}

// MarketDataTool reports quotes for the symbols in its input, or a fixed
// index snapshot when the input names none.
type MarketDataTool struct {
	Quotes QuoteSource
}

func (MarketDataTool) Name() string { return "get_market_data" }

func (MarketDataTool) Description() string {
	return "Current market snapshot. Input: optional comma separated ticker symbols."
}

type indexLevel struct {
	Index     string  `json:"index"`
	Level     float64 `json:"level"`
	ChangePct float64 `json:"changePct"`
}

var indexSnapshot = []indexLevel{
	{Index: "NIFTY 50", Level: 22450.3, ChangePct: 0.42},
	{Index: "SENSEX", Level: 73890.1, ChangePct: 0.38},
	{Index: "S&P 500", Level: 5204.3, ChangePct: -0.12},
	{Index: "NASDAQ", Level: 16379.5, ChangePct: -0.25},
}

type quoteView struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Simulated bool   `json:"simulated"`
}

func (t MarketDataTool) Run(ctx context.Context, input string, _ int64) (string, error) {
	if t.Quotes != nil {
		if symbols, err := market.ParseSymbols(input); err == nil {
			quotes, err := t.Quotes.Quotes(ctx, symbols)
			if err != nil {
				return "", err
			}
			views := make([]quoteView, len(quotes))
			for i, q := range quotes {
				views[i] = quoteView{Symbol: q.Symbol, Price: q.Price.StringFixed(2), Currency: q.Currency, Simulated: q.Simulated}
			}
			return marshal(map[string]any{"quotes": views})
		}
	}
	return marshal(map[string]any{"indices": indexSnapshot, "simulated": true})
}

// PortfolioSummaryTool describes the user's allocation, or a sample
// allocation when no user is known.
type PortfolioSummaryTool struct {
	Summaries SummarySource
}

func (PortfolioSummaryTool) Name() string { return "get_portfolio_summary" }

func (PortfolioSummaryTool) Description() string {
	return "The user's portfolio allocation by category. Input: ignored."
}

var sampleAllocation = map[string]float64{
	"Stocks":       45,
	"Mutual Funds": 30,
	"Gold":         10,
	"Fixed Income": 15,
}

func (t PortfolioSummaryTool) Run(ctx context.Context, _ string, userID int64) (string, error) {
	if t.Summaries == nil || userID <= 0 {
		return marshal(map[string]any{"allocationPct": sampleAllocation, "sample": true})
	}
	s, err := t.Summaries.Summary(ctx, userID)
	if err != nil {
		return "", err
	}
	alloc := make(map[string]float64, len(s.Categories))
	for _, c := range s.Categories {
		alloc[c.Category] = c.Weight
	}
	return marshal(map[string]any{
		"totalInvested": s.TotalInvested.StringFixed(2),
		"allocationPct": alloc,
		"positions":     len(s.Positions),
	})
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode observation: %w", err)
	}
	return string(b), nil
}

func toolIndex(tools []Tool) map[string]Tool {
	idx := make(map[string]Tool, len(tools))
	for _, t := range tools {
		idx[t.Name()] = t
	}
	return idx
}

func sortedToolNames(idx map[string]Tool) []string {
	names := make([]string, 0, len(idx))
	for n := range idx {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func toolNames(idx map[string]Tool) string {
	return strings.Join(sortedToolNames(idx), ", ")
}
