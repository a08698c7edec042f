package market

import (
	"context"
	"fmt"
	"time"

	"finarth/internal/cache"
	"finarth/internal/core"
	"finarth/internal/log"

	"golang.org/x/sync/errgroup"
)

const fetchConcurrency = 4

// Service answers quote requests from an LRU cache, falling back to the
// provider and, when the provider fails, to simulated prices.
type Service struct {
	provider Provider
	fallback Provider
	cache    *cache.LRUCache[core.Quote]
	logger   *log.Logger
}

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// NewService builds a quote service. A nil provider means simulated quotes only.
func NewService(provider Provider, opts Options, logger *log.Logger) *Service {
	mock := NewMockProvider()
	if provider == nil {
		provider = mock
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Service{
		provider: provider,
		fallback: mock,
		cache:    cache.NewLRUCache[core.Quote](opts.CacheSize, opts.CacheTTL),
		logger:   logger.WithComponent(log.ComponentMarket),
	}
}

// Simulated reports whether quotes come from the mock provider.
func (s *Service) Simulated() bool {
	return s.provider == s.fallback
}

// Cache exposes the quote cache so it can be registered for cleanup.
func (s *Service) Cache() *cache.LRUCache[core.Quote] {
	return s.cache
}

// Quotes returns one quote per symbol in request order.
func (s *Service) Quotes(ctx context.Context, symbols []string) ([]core.Quote, error) {
	out := make([]core.Quote, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, sym := range symbols {
		if q, ok := s.cache.Get(sym); ok {
			out[i] = q
			continue
		}
		g.Go(func() error {
			q, err := s.fetch(gctx, sym)
			if err != nil {
				return err
			}
			out[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh bypasses the cache and fetches a fresh quote.
func (s *Service) Refresh(ctx context.Context, symbol string) (core.Quote, error) {
	return s.fetch(ctx, symbol)
}

func (s *Service) fetch(ctx context.Context, symbol string) (core.Quote, error) {
	q, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return core.Quote{}, ctx.Err()
		}
		s.logger.WarnContext(ctx, "Quote provider failed, using simulated price",
			log.FieldSymbol, symbol,
			"provider", s.provider.Name(),
			log.FieldError, err)
		q, err = s.fallback.Quote(ctx, symbol)
		if err != nil {
			return core.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
		}
	}
	s.cache.Set(symbol, q)
	return q, nil
}
