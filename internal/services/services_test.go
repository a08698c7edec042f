package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finarth/internal/amqp"
	"finarth/internal/auth"
	"finarth/internal/cache"
	"finarth/internal/core"
	"finarth/internal/log"
	"finarth/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type staticQuotes map[string]core.Quote

func (s staticQuotes) Quotes(_ context.Context, symbols []string) ([]core.Quote, error) {
	var out []core.Quote
	for _, sym := range symbols {
		if q, ok := s[sym]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finarth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newUserService(t *testing.T, pub Publisher) (*UserService, *storage.SQLiteRepository, *cache.SessionCache) {
	repo := newRepo(t)
	sessions := cache.NewSessionCache(100, time.Minute)
	svc := NewUserService(repo, auth.NewTokenManager("secret", time.Hour), sessions, pub, log.Discard())
	return svc, repo, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, sessions := newUserService(t, pub)
	ctx := context.Background()

	u, err := svc.Register(ctx, " Ana@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.True(t, u.NeedsOnboarding())
	assert.Equal(t, []string{amqp.TypeUserRegistered}, pub.types())

	payload, err := pub.events[0].UserRegistered()
	require.NoError(t, err)
	assert.Equal(t, u.ID, payload.UserID)
	assert.NotEmpty(t, payload.VerificationToken)

	_, err = svc.Register(ctx, "ana@example.com", "another1")
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	logged, token, err := svc.Login(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, sessions.Size())

	_, _, err = svc.Login(ctx, "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, _, err = svc.Login(ctx, "", "secret1")
	assert.ErrorIs(t, err, core.ErrMissingCredentials)
}

func TestRegisterSurvivesPublisherFailure(t *testing.T) {
	svc, _, _ := newUserService(t, &recordingPublisher{err: errors.New("broker down")})
	_, err := svc.Register(context.Background(), "ana@example.com", "secret1")
	assert.NoError(t, err)
}

func TestOnboardingInvalidatesSession(t *testing.T) {
	svc, _, sessions := newUserService(t, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	cached, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, cached.NeedsOnboarding())
	_, ok := sessions.Get(u.ID)
	require.True(t, ok)

	profile, err := svc.CompleteOnboarding(ctx, core.Onboarding{
		UserID:          u.ID,
		FullName:        "Ana Rao",
		RiskProfile:     core.Conservative,
		InvestmentTypes: []string{"fd"},
		Objectives:      []string{"emergency fund"},
	})
	require.NoError(t, err)
	assert.False(t, profile.NeedsOnboarding())
	assert.Equal(t, []string{"fd"}, profile.InvestmentTypes)

	again, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Rao", again.FullName)

	_, err = svc.CompleteOnboarding(ctx, core.Onboarding{RiskProfile: core.Moderate})
	assert.ErrorIs(t, err, core.ErrMissingUserID)

	_, err = svc.CompleteOnboarding(ctx, core.Onboarding{UserID: 999, RiskProfile: core.Moderate})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestVerify(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, _ := newUserService(t, pub)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	payload, err := pub.events[0].UserRegistered()
	require.NoError(t, err)

	u, err := svc.Verify(ctx, payload.VerificationToken)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	_, err = svc.Verify(ctx, "unknown")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPortfolioLifecycleAndSummary(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	pub := &recordingPublisher{}

	live := staticQuotes{"MSFT": {Symbol: "MSFT", Price: decimal.NewFromInt(410), Simulated: true}}
	svc := NewPortfolioService(repo, live, pub, log.Discard())

	u, err := repo.CreateUser(ctx, "ana@example.com", "hash", "")
	require.NoError(t, err)

	require.NoError(t, repo.SaveQuote(ctx, core.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(180), Currency: "USD", Source: "polygon"}))

	aapl, err := svc.Create(ctx, core.Holding{UserID: u.ID, Name: " Apple ", Category: "Stocks", Amount: decimal.NewFromInt(3000), Symbol: "aapl"})
	require.NoError(t, err)
	assert.Equal(t, "Apple", aapl.Name)
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, core.Today().String(), aapl.Date.String())

	_, err = svc.Create(ctx, core.Holding{UserID: u.ID, Name: "Microsoft", Category: "Stocks", Amount: decimal.NewFromInt(1000), Symbol: "MSFT", Date: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)
	gold, err := svc.Create(ctx, core.Holding{UserID: u.ID, Name: "Gold", Category: "Gold", Amount: decimal.NewFromInt(1000), Date: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalInvested.Equal(decimal.NewFromInt(5000)))
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "Stocks", summary.Categories[0].Category)
	assert.Equal(t, 80.0, summary.Categories[0].Weight)
	assert.Equal(t, 2, summary.Categories[0].Holdings)
	assert.Equal(t, 20.0, summary.Categories[1].Weight)

	require.Len(t, summary.Positions, 2)
	prices := map[string]string{}
	for _, p := range summary.Positions {
		require.NotNil(t, p.Quote)
		prices[p.Symbol] = p.Quote.Price.String()
	}
	assert.Equal(t, map[string]string{"AAPL": "180", "MSFT": "410"}, prices)

	require.NoError(t, svc.Delete(ctx, u.ID, gold.ID))
	list, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, svc.Delete(ctx, u.ID, gold.ID), core.ErrNotFound)
	assert.Equal(t, []string{
		amqp.TypeHoldingChanged, amqp.TypeHoldingChanged, amqp.TypeHoldingChanged, amqp.TypeHoldingChanged,
	}, pub.types())
}

func TestPortfolioValidation(t *testing.T) {
	svc := NewPortfolioService(newRepo(t), nil, nil, log.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, core.Holding{UserID: 1, Name: "", Category: "Stocks", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.Create(ctx, core.Holding{UserID: 1, Name: "x", Category: "Stocks", Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.Create(ctx, core.Holding{Name: "x", Category: "Stocks", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrMissingUserID)

	_, err = svc.Create(ctx, core.Holding{UserID: 42, Name: "x", Category: "Stocks", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrNotFound)

	summary, err := svc.Summary(ctx, 42)
	require.NoError(t, err)
	assert.True(t, summary.TotalInvested.IsZero())
	assert.Empty(t, summary.Categories)
}
