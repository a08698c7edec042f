package market

import (
	"context"
	"fmt"
	"time"

	"finarth/internal/core"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"
)

// PolygonProvider serves previous-close aggregates from the Polygon REST API.
type PolygonProvider struct {
	client *polygon.Client
}

func NewPolygonProvider(apiKey string) *PolygonProvider {
	return &PolygonProvider{client: polygon.New(apiKey)}
}

func (p *PolygonProvider) Name() string { return "polygon" }

func (p *PolygonProvider) Quote(ctx context.Context, symbol string) (core.Quote, error) {
	params := models.GetPreviousCloseAggParams{Ticker: symbol}.WithAdjusted(true)

	res, err := p.client.GetPreviousCloseAgg(ctx, params)
	if err != nil {
		return core.Quote{}, fmt.Errorf("polygon previous close %s: %w", symbol, err)
	}
	if len(res.Results) == 0 {
		return core.Quote{}, fmt.Errorf("polygon previous close %s: %w", symbol, ErrNoQuoteData)
	}

	agg := res.Results[0]
	return core.Quote{
		Symbol:   symbol,
		Price:    decimal.NewFromFloat(agg.Close).Round(4),
		Currency: "USD",
		Source:   p.Name(),
		AsOf:     time.Time(agg.Timestamp),
	}, nil
}
