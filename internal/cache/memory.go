package cache

import (
	"context"
	"sync"
	"time"

	"globus_tours/internal/adapters/observability"
)

// DefaultSweepCeiling is the map size past which Set triggers a stale sweep.
const DefaultSweepCeiling = 100

type entry[T any] struct {
	value T
	at    time.Time
}

// Memory is an in-process Store with lazy expiry. An entry is fresh iff
// now - createdAt < ttl; staleness is checked on read, never pushed.
// Memory between sweeps is best-effort bounded, not guaranteed.
type Memory[T any] struct {
	mu      sync.Mutex
	items   map[string]entry[T]
	ttl     time.Duration
	ceiling int
	name    string
	now     func() time.Time
}

// NewMemory returns a Memory store with the default sweep ceiling.
// name labels cache metrics.
func NewMemory[T any](name string, ttl time.Duration) *Memory[T] {
	return &Memory[T]{
		items:   make(map[string]entry[T]),
		ttl:     ttl,
		ceiling: DefaultSweepCeiling,
		name:    name,
		now:     time.Now,
	}
}

func (m *Memory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok || m.now().Sub(e.at) >= m.ttl {
		if ok {
			delete(m.items, key) // stale: evict on the way out
		}
		observability.ObserveCache(m.name, "miss")
		var zero T
		return zero, false, nil
	}
	observability.ObserveCache(m.name, "hit")
	return e.value, true, nil
}

func (m *Memory[T]) Set(ctx context.Context, key string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = entry[T]{value: v, at: m.now()}
	observability.ObserveCache(m.name, "set")

	if len(m.items) > m.ceiling {
		m.sweepLocked()
	}
	return nil
}

// sweepLocked drops every stale entry. Callers hold mu.
func (m *Memory[T]) sweepLocked() {
	now := m.now()
	for k, e := range m.items {
		if now.Sub(e.at) >= m.ttl {
			delete(m.items, k)
		}
	}
	observability.ObserveCache(m.name, "sweep")
}

// Len reports the current entry count, stale entries included.
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
