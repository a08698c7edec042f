package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"finarth/internal/amqp"
	"finarth/internal/core"
	"finarth/internal/log"

	"github.com/shopspring/decimal"
)

type HoldingStore interface {
	CreateHolding(ctx context.Context, h core.Holding) (core.Holding, error)
	ListHoldings(ctx context.Context, userID int64) ([]core.Holding, error)
	GetHolding(ctx context.Context, userID, id int64) (core.Holding, error)
	UpdateHolding(ctx context.Context, h core.Holding) (core.Holding, error)
	DeleteHolding(ctx context.Context, userID, id int64) error
	GetQuotes(ctx context.Context, symbols []string) (map[string]core.Quote, error)
}

// LiveQuotes fills in prices the worker has not stored yet.
type LiveQuotes interface {
	Quotes(ctx context.Context, symbols []string) ([]core.Quote, error)
}

type PortfolioService struct {
	store     HoldingStore
	live      LiveQuotes
	publisher Publisher
	logger    *log.Logger
	audit     *log.StructuredLogger
}

// NewPortfolioService builds the service; live and publisher may be nil.
func NewPortfolioService(store HoldingStore, live LiveQuotes, publisher Publisher, logger *log.Logger) *PortfolioService {
	l := logger.WithComponent(log.ComponentPortfolio)
	return &PortfolioService{
		store:     store,
		live:      live,
		publisher: publisher,
		logger:    l,
		audit:     log.NewStructuredLogger(l),
	}
}

func normalizeHolding(h core.Holding) (core.Holding, error) {
	h.Name = strings.TrimSpace(h.Name)
	h.Category = strings.TrimSpace(h.Category)
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	if h.Date.IsZero() {
		h.Date = core.Today()
	}
	if h.Amount.IsPositive() {
		amount, err := core.NormalizeAmount(h.Amount)
		if err != nil {
			return h, err
		}
		h.Amount = amount
	}
	return h, h.Validate()
}

func (s *PortfolioService) List(ctx context.Context, userID int64) ([]core.Holding, error) {
	if userID <= 0 {
		return nil, core.ErrMissingUserID
	}
	return s.store.ListHoldings(ctx, userID)
}

func (s *PortfolioService) Create(ctx context.Context, h core.Holding) (core.Holding, error) {
	if h.UserID <= 0 {
		return core.Holding{}, core.ErrMissingUserID
	}
	h, err := normalizeHolding(h)
	if err != nil {
		return core.Holding{}, err
	}
	created, err := s.store.CreateHolding(ctx, h)
	if err != nil {
		return core.Holding{}, err
	}
	s.changed(ctx, created, amqp.ActionCreated)
	return created, nil
}

func (s *PortfolioService) Update(ctx context.Context, h core.Holding) (core.Holding, error) {
	if h.UserID <= 0 {
		return core.Holding{}, core.ErrMissingUserID
	}
	h, err := normalizeHolding(h)
	if err != nil {
		return core.Holding{}, err
	}
	updated, err := s.store.UpdateHolding(ctx, h)
	if err != nil {
		return core.Holding{}, err
	}
	s.changed(ctx, updated, amqp.ActionUpdated)
	return updated, nil
}

func (s *PortfolioService) Delete(ctx context.Context, userID, holdingID int64) error {
	h, err := s.store.GetHolding(ctx, userID, holdingID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteHolding(ctx, userID, holdingID); err != nil {
		return err
	}
	s.changed(ctx, h, amqp.ActionDeleted)
	return nil
}

func (s *PortfolioService) changed(ctx context.Context, h core.Holding, action string) {
	s.audit.LogHoldingChanged(ctx, action, h.UserID, h.ID, h.Category, h.Amount.String(), h.Symbol)
	ev, err := amqp.NewHoldingChanged(amqp.HoldingChanged{
		UserID:    h.UserID,
		HoldingID: h.ID,
		Symbol:    h.Symbol,
		Action:    action,
	})
	publish(ctx, s.publisher, s.logger, ev, err)
}

// Summary aggregates holdings per category and attaches the last known price
// to every holding with a symbol.
func (s *PortfolioService) Summary(ctx context.Context, userID int64) (core.PortfolioSummary, error) {
	holdings, err := s.List(ctx, userID)
	if err != nil {
		return core.PortfolioSummary{}, err
	}

	summary := core.PortfolioSummary{UserID: userID, TotalInvested: decimal.Zero}
	byCategory := make(map[string]*core.CategoryAllocation)
	var symbols []string
	seen := make(map[string]bool)

	for _, h := range holdings {
		summary.TotalInvested = summary.TotalInvested.Add(h.Amount)
		c, ok := byCategory[h.Category]
		if !ok {
			c = &core.CategoryAllocation{Category: h.Category, Invested: decimal.Zero}
			byCategory[h.Category] = c
		}
		c.Invested = c.Invested.Add(h.Amount)
		c.Holdings++

		if h.Symbol != "" && !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}

	for _, c := range byCategory {
		if summary.TotalInvested.IsPositive() {
			c.Weight = c.Invested.Div(summary.TotalInvested).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		summary.Categories = append(summary.Categories, *c)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		a, b := summary.Categories[i], summary.Categories[j]
		if !a.Invested.Equal(b.Invested) {
			return a.Invested.GreaterThan(b.Invested)
		}
		return a.Category < b.Category
	})

	quotes, err := s.quotes(ctx, symbols)
	if err != nil {
		return core.PortfolioSummary{}, err
	}
	for _, h := range holdings {
		if h.Symbol == "" {
			continue
		}
		pos := core.PositionQuote{HoldingID: h.ID, Name: h.Name, Symbol: h.Symbol, Invested: h.Amount}
		if q, ok := quotes[h.Symbol]; ok {
			pos.Quote = &q
		}
		summary.Positions = append(summary.Positions, pos)
	}
	return summary, nil
}

func (s *PortfolioService) quotes(ctx context.Context, symbols []string) (map[string]core.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	stored, err := s.store.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}
	if stored == nil {
		stored = make(map[string]core.Quote)
	}
	if s.live == nil {
		return stored, nil
	}

	var missing []string
	for _, sym := range symbols {
		if _, ok := stored[sym]; !ok {
			missing = append(missing, sym)
		}
	}
	if len(missing) == 0 {
		return stored, nil
	}
	live, err := s.live.Quotes(ctx, missing)
	if err != nil {
		s.logger.WarnContext(ctx, "Live quotes unavailable for summary", log.FieldError, err)
		return stored, nil
	}
	for _, q := range live {
		stored[q.Symbol] = q
	}
	return stored, nil
}
