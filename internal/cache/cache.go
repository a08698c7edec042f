package cache

import (
	"context"
	"time"

	"finarth/internal/log"
)

// Cache is the store shape used by the session and quote caches
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches
type Manager struct {
	logger *log.Logger
	caches map[string]Cleaner
	done   chan struct{}
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger: logger.WithComponent(log.ComponentCache),
		caches: make(map[string]Cleaner),
		done:   make(chan struct{}),
	}
}

// Register adds a named cache. Call before Run.
func (m *Manager) Register(name string, c Cleaner) {
	m.caches[name] = c
}

// Run sweeps every interval until ctx is cancelled
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the number of removed entries
func (m *Manager) Sweep() int {
	total := 0
	for name, c := range m.caches {
		n := c.CleanExpired()
		if n > 0 {
			m.logger.Debug("Expired cache entries removed", "cache", name, "removed", n)
		}
		total += n
	}
	return total
}

// Done is closed once Run returns
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
