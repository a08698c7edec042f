// Package market fetches stock quotes from Polygon or a deterministic mock.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finarth/internal/core"
)

// MaxSymbols caps a single quotes request.
const MaxSymbols = 20

var (
	ErrNoSymbols   = errors.New("no symbols requested")
	ErrTooMany     = fmt.Errorf("at most %d symbols per request", MaxSymbols)
	ErrNoQuoteData = errors.New("no quote data")
)

// Provider returns the latest quote for one ticker.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (core.Quote, error)
}

// ParseSymbols splits a comma separated list, uppercases and dedupes it,
// keeping the first-seen order.
func ParseSymbols(raw string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		s := strings.ToUpper(strings.TrimSpace(part))
		if s == "" || seen[s] {
			continue
		}
		if !core.ValidSymbol(s) {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidSymbol, s)
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoSymbols
	}
	if len(out) > MaxSymbols {
		return nil, ErrTooMany
	}
	return out, nil
}
