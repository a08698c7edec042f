package market

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"finarth/internal/core"
	"finarth/internal/log"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Quote(_ context.Context, symbol string) (core.Quote, error) {
	f.calls.Add(1)
	if f.fail[symbol] {
		return core.Quote{}, errors.New("upstream down")
	}
	return core.Quote{Symbol: symbol, Price: decimal.NewFromInt(100), Currency: "USD", Source: "fake"}, nil
}

func TestParseSymbols(t *testing.T) {
	got, err := ParseSymbols(" aapl, MSFT,aapl,,brk.b ")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "BRK.B"}, got)

	_, err = ParseSymbols(" , ")
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, err = ParseSymbols("AAPL;DROP")
	assert.ErrorIs(t, err, core.ErrInvalidSymbol)
}

func TestParseSymbolsTooMany(t *testing.T) {
	raw := ""
	for i := 0; i < MaxSymbols+1; i++ {
		raw += string(rune('A'+i%26)) + string(rune('A'+i/26)) + ","
	}
	_, err := ParseSymbols(raw)
	assert.ErrorIs(t, err, ErrTooMany)
}

func TestMockProviderDeterministic(t *testing.T) {
	m := NewMockProvider()
	day := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return day }

	a, err := m.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	b, err := m.Quote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, a.Price.Equal(b.Price))
	assert.True(t, a.Simulated)
	assert.True(t, a.Price.GreaterThanOrEqual(decimal.NewFromInt(19)))
	assert.True(t, a.Price.LessThan(decimal.NewFromInt(547)))
}

func TestServiceCachesQuotes(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p, Options{CacheSize: 10, CacheTTL: time.Minute}, log.Discard())

	quotes, err := svc.Quotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "MSFT", quotes[1].Symbol)
	assert.False(t, svc.Simulated())

	_, err = svc.Quotes(context.Background(), []string{"MSFT", "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestServiceFallsBackToSimulated(t *testing.T) {
	p := &fakeProvider{fail: map[string]bool{"TSLA": true}}
	svc := NewService(p, Options{}, log.Discard())

	quotes, err := svc.Quotes(context.Background(), []string{"AAPL", "TSLA"})
	require.NoError(t, err)
	assert.False(t, quotes[0].Simulated)
	assert.True(t, quotes[1].Simulated)
	assert.Equal(t, "mock", quotes[1].Source)
}

func TestServiceWithoutProviderIsSimulated(t *testing.T) {
	svc := NewService(nil, Options{}, log.Discard())
	assert.True(t, svc.Simulated())

	q, err := svc.Refresh(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.True(t, q.Simulated)
}
