package market

import (
	"context"
	"hash/fnv"
	"time"

	"finarth/internal/core"

	"github.com/shopspring/decimal"
)

// MockProvider derives a stable pseudo price from the symbol and the current
// day, so repeated calls agree while prices still move day to day.
type MockProvider struct {
	now func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Quote(_ context.Context, symbol string) (core.Quote, error) {
	day := m.now().UTC().Truncate(24 * time.Hour)

	h := fnv.New64a()
	h.Write([]byte(symbol))
	base := h.Sum64()

	h.Write([]byte(day.Format(time.DateOnly)))
	drift := int64(h.Sum64()%1001) - 500 // +/- 5.00%

	// base price in [20.00, 520.00)
	cents := int64(base%50000) + 2000
	price := decimal.New(cents, -2).
		Mul(decimal.New(10000+drift, -4)).
		Round(2)

	return core.Quote{
		Symbol:    symbol,
		Price:     price,
		Currency:  "USD",
		Source:    m.Name(),
		Simulated: true,
		AsOf:      day,
	}, nil
}
