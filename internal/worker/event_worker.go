package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"finarth/internal/amqp"
	"finarth/internal/core"
	"finarth/internal/log"
	"finarth/internal/mail"
	"finarth/internal/sheets"

	"golang.org/x/sync/errgroup"
)

const refreshConcurrency = 4

type Store interface {
	ListHoldings(ctx context.Context, userID int64) ([]core.Holding, error)
	HoldingSymbols(ctx context.Context) ([]string, error)
	SaveQuote(ctx context.Context, q core.Quote) error
}

type QuoteRefresher interface {
	Refresh(ctx context.Context, symbol string) (core.Quote, error)
}

// EventWorker handles events published by the API.
type EventWorker struct {
	store    Store
	quotes   QuoteRefresher
	mailer   mail.Sender
	exporter sheets.HoldingExporter
	logger   *log.Logger
}

// NewEventWorker wires the handlers. exporter may be nil.
func NewEventWorker(store Store, quotes QuoteRefresher, mailer mail.Sender, exporter sheets.HoldingExporter, logger *log.Logger) *EventWorker {
	return &EventWorker{
		store:    store,
		quotes:   quotes,
		mailer:   mailer,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Handle dispatches on the event type. It satisfies amqp.Handler.
func (w *EventWorker) Handle(ctx context.Context, ev amqp.Event) error {
	switch ev.Type {
	case amqp.TypeUserRegistered:
		p, err := ev.UserRegistered()
		if err != nil {
			return amqp.Permanent(fmt.Errorf("decode %s: %w", ev.Type, err))
		}
		return w.HandleUserRegistered(ctx, p)
	case amqp.TypeHoldingChanged:
		p, err := ev.HoldingChanged()
		if err != nil {
			return amqp.Permanent(fmt.Errorf("decode %s: %w", ev.Type, err))
		}
		return w.HandleHoldingChanged(ctx, p)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", log.FieldEventType, ev.Type)
		return nil
	}
}

func (w *EventWorker) HandleUserRegistered(ctx context.Context, p amqp.UserRegistered) error {
	if p.VerificationToken == "" {
		w.logger.InfoContext(ctx, "No verification token, skipping mail", log.FieldUserID, p.UserID)
		return nil
	}
	if err := w.mailer.SendVerification(ctx, p.Email, p.VerificationToken); err != nil {
		err = fmt.Errorf("send verification mail: %w", err)
		if errors.Is(err, mail.ErrRejected) {
			return amqp.Permanent(err)
		}
		return err
	}
	return nil
}

// HandleHoldingChanged refreshes the holding's quote and mirrors the user's
// holdings to the spreadsheet.
func (w *EventWorker) HandleHoldingChanged(ctx context.Context, p amqp.HoldingChanged) error {
	if p.Symbol != "" && p.Action != amqp.ActionDeleted {
		if err := w.refresh(ctx, p.Symbol); err != nil {
			return err
		}
	}

	if w.exporter == nil {
		return nil
	}
	holdings, err := w.store.ListHoldings(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("list holdings: %w", err)
	}
	if err := w.exporter.ExportHoldings(ctx, p.UserID, holdings); err != nil {
		return fmt.Errorf("export holdings: %w", err)
	}
	return nil
}

func (w *EventWorker) refresh(ctx context.Context, symbol string) error {
	q, err := w.quotes.Refresh(ctx, symbol)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", symbol, err)
	}
	if err := w.store.SaveQuote(ctx, q); err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "Quote refreshed",
		log.FieldSymbol, symbol,
		"price", q.Price.String(),
		"simulated", q.Simulated)
	return nil
}

// RefreshAllQuotes refreshes every symbol referenced by a holding. Individual
// failures are logged and counted; the first one is returned.
func (w *EventWorker) RefreshAllQuotes(ctx context.Context) (int, error) {
	symbols, err := w.store.HoldingSymbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("list symbols: %w", err)
	}

	var refreshed atomic.Int64
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			if err := w.refresh(ctx, sym); err != nil {
				w.logger.WarnContext(ctx, "Quote refresh failed", log.FieldSymbol, sym, log.FieldError, err)
				return err
			}
			refreshed.Add(1)
			return nil
		})
	}
	err = g.Wait()

	w.logger.InfoContext(ctx, "Quote refresh finished",
		"symbols", len(symbols),
		"refreshed", refreshed.Load())
	return int(refreshed.Load()), err
}

// RunPeriodicRefresh refreshes all quotes every interval until ctx is done.
func (w *EventWorker) RunPeriodicRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RefreshAllQuotes(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic quote refresh incomplete", log.FieldError, err)
			}
		}
	}
}
