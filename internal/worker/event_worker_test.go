package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finarth/internal/amqp"
	"finarth/internal/core"
	"finarth/internal/log"
	"finarth/internal/mail"
	"finarth/internal/market"
	"finarth/internal/sheets/memory"
	"finarth/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (f *fakeMailer) SendVerification(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[to] = token
	return nil
}

type failingQuotes struct{}

func (failingQuotes) Refresh(context.Context, string) (core.Quote, error) {
	return core.Quote{}, errors.New("rate limited")
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finarth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleUserRegistered(t *testing.T) {
	mailer := &fakeMailer{}
	w := NewEventWorker(newRepo(t), nil, mailer, nil, log.Discard())

	ev, err := amqp.NewUserRegistered(amqp.UserRegistered{UserID: 1, Email: "ana@example.com", VerificationToken: "tok"})
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), ev))
	assert.Equal(t, "tok", mailer.sent["ana@example.com"])

	mailer.err = errors.New("sendgrid 500")
	err = w.Handle(context.Background(), ev)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, amqp.ErrPermanent)

	mailer.err = fmt.Errorf("sendgrid send: status 400: %w", mail.ErrRejected)
	assert.ErrorIs(t, w.Handle(context.Background(), ev), amqp.ErrPermanent)
}

func TestHandleMalformedPayloadIsPermanent(t *testing.T) {
	w := NewEventWorker(newRepo(t), nil, &fakeMailer{}, nil, log.Discard())

	for _, typ := range []string{amqp.TypeUserRegistered, amqp.TypeHoldingChanged} {
		ev := amqp.Event{Type: typ, Payload: []byte(`"not-an-object"`)}
		assert.ErrorIs(t, w.Handle(context.Background(), ev), amqp.ErrPermanent, typ)
	}
}

func TestHandleHoldingChanged(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	exporter := memory.New()
	quotes := market.NewService(nil, market.Options{}, log.Discard())
	w := NewEventWorker(repo, quotes, &fakeMailer{}, exporter, log.Discard())

	u, err := repo.CreateUser(ctx, "ana@example.com", "hash", "")
	require.NoError(t, err)
	h, err := repo.CreateHolding(ctx, core.Holding{
		UserID: u.ID, Name: "Apple", Category: "Stocks", Amount: decimal.NewFromInt(100),
		Date: core.NewDate(2024, 1, 1), Symbol: "AAPL",
	})
	require.NoError(t, err)

	ev, err := amqp.NewHoldingChanged(amqp.HoldingChanged{UserID: u.ID, HoldingID: h.ID, Symbol: "AAPL", Action: amqp.ActionCreated})
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, ev))

	stored, err := repo.GetQuotes(ctx, []string{"AAPL"})
	require.NoError(t, err)
	require.Contains(t, stored, "AAPL")
	assert.True(t, stored["AAPL"].Simulated)

	rows := exporter.Rows(u.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "Apple", rows[1][2])
}

func TestHandleHoldingChangedQuoteFailureRequeues(t *testing.T) {
	w := NewEventWorker(newRepo(t), failingQuotes{}, &fakeMailer{}, nil, log.Discard())
	err := w.HandleHoldingChanged(context.Background(), amqp.HoldingChanged{UserID: 1, HoldingID: 1, Symbol: "AAPL", Action: amqp.ActionUpdated})
	assert.Error(t, err)

	// deletes never refresh
	err = w.HandleHoldingChanged(context.Background(), amqp.HoldingChanged{UserID: 1, HoldingID: 1, Symbol: "AAPL", Action: amqp.ActionDeleted})
	assert.NoError(t, err)
}

func TestRefreshAllQuotes(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, "ana@example.com", "hash", "")
	require.NoError(t, err)
	for _, sym := range []string{"AAPL", "MSFT", "AAPL", ""} {
		_, err := repo.CreateHolding(ctx, core.Holding{
			UserID: u.ID, Name: "x", Category: "Stocks", Amount: decimal.NewFromInt(1), Date: core.NewDate(2024, 1, 1), Symbol: sym,
		})
		require.NoError(t, err)
	}

	w := NewEventWorker(repo, market.NewService(nil, market.Options{}, log.Discard()), &fakeMailer{}, nil, log.Discard())
	n, err := w.RefreshAllQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := repo.GetQuotes(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRunPeriodicRefreshStops(t *testing.T) {
	w := NewEventWorker(newRepo(t), failingQuotes{}, &fakeMailer{}, nil, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodicRefresh(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic refresh did not stop")
	}
}
