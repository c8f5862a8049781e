// Package cache memoizes rendered search reports by cache key.
//
// A Store is the shared key/value structure; Cache layers the concurrency
// mode on top of it. In baseline mode concurrent misses on one key each
// compute and store (last write wins). In singleflight mode concurrent misses
// share one computation.
package cache

import (
	"context"
	"sync"
)

// Store maps cache keys to rendered HTML. Implementations must be safe for
// concurrent use.
type Store interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Store(ctx context.Context, key, html string) error
	Name() string
}

// Sizer is implemented by stores that can report their entry count.
type Sizer interface {
	Len() int
}

// Memory is a process-lifetime map behind one reader/writer lock. It never
// evicts.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Lookup takes the lock in shared mode.
func (m *Memory) Lookup(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	html, ok := m.entries[key]
	return html, ok, nil
}

// Store takes the lock exclusively and overwrites any previous value.
func (m *Memory) Store(_ context.Context, key, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = html
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Name() string { return "memory" }
