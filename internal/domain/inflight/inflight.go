// Package inflight tracks which keys have work in progress so callers can
// refuse overlapping operations on the same key.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/essayscore/pkg/metrics"
)

// Guard admits at most one holder per key.
type Guard interface {
	// TryAcquire marks key as busy. It returns false, without blocking,
	// when key is already held.
	TryAcquire(ctx context.Context, key string) bool

	// Release frees key. Releasing a free key is a no-op.
	Release(ctx context.Context, key string)

	// Held reports whether key is currently busy.
	Held(key string) bool

	// Size returns the number of busy keys.
	Size() int64
}

type memoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
	size atomic.Int64
}

// NewGuard creates an in-memory Guard.
func NewGuard() Guard {
	return &memoryGuard{held: make(map[string]struct{})}
}

func (g *memoryGuard) TryAcquire(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return false
	}
	g.held[key] = struct{}{}
	g.size.Add(1)
	metrics.IncSubmissionsInFlight()
	return true
}

func (g *memoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; !busy {
		return
	}
	delete(g.held, key)
	g.size.Add(-1)
	metrics.DecSubmissionsInFlight()
}

func (g *memoryGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[key]
	return busy
}

func (g *memoryGuard) Size() int64 {
	return g.size.Load()
}
