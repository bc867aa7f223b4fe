// Package cache keeps bank layouts and template bytes in memory between
// renders.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"imprimecheque/internal/log"
)

// Cache is the subset of LRUCache used by services.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error)
	Delete(key string)
	Size() int
}

// Cleaner is a cache with expiring entries.
type Cleaner interface {
	CleanExpired() int
	Stats() Stats
}

// Manager periodically purges expired entries of its registered caches.
type Manager struct {
	mu       sync.Mutex
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// Stats returns the counters of every registered cache.
func (m *Manager) Stats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Stats, len(m.caches))
	for i, c := range m.caches {
		out[i] = c.Stats()
	}
	return out
}

// StartCleanup purges expired entries every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			caches := append([]Cleaner(nil), m.caches...)
			m.mu.Unlock()
			for _, c := range caches {
				if n := c.CleanExpired(); n > 0 {
					slog.Debug("Expired cache entries removed", log.FieldComponent, log.ComponentCache, "cache", c.Stats().Name, "removed", n)
				}
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine started by StartCleanup and waits for it.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}
