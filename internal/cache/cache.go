package cache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc renders the response for a missed key.
type ComputeFunc func(ctx context.Context) (string, error)

// Stats is a point-in-time view of cache activity. Entries is -1 when the
// store cannot report its size.
type Stats struct {
	Mode         string `json:"mode"`
	Backend      string `json:"backend"`
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	Computations int64  `json:"computations"`
	Entries      int    `json:"entries"`
}

type Cache struct {
	store        Store
	mode         string
	group        singleflight.Group
	metrics      *metrics.Metrics
	logger       *slog.Logger
	hits         atomic.Int64
	misses       atomic.Int64
	computations atomic.Int64
}

// New wraps store. An unknown mode falls back to baseline. m may be nil.
func New(store Store, mode string, m *metrics.Metrics) *Cache {
	if mode != config.CacheModeSingleflight {
		mode = config.CacheModeBaseline
	}
	return &Cache{
		store:   store,
		mode:    mode,
		metrics: m,
		logger:  slog.Default().With("component", "response-cache", "mode", mode),
	}
}

func (c *Cache) Mode() string { return c.mode }

// Lookup returns the stored HTML for key. Backend errors are logged and
// reported as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (string, bool) {
	html, ok, err := c.store.Lookup(ctx, key)
	if err != nil {
		c.logger.Error("cache lookup failed", "key", key, "error", err)
		ok = false
	}
	if ok {
		c.hits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return html, true
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return "", false
}

// Store writes html under key, overwriting unconditionally. Backend errors
// are logged; the caller already holds the response.
func (c *Cache) Store(ctx context.Context, key, html string) {
	if err := c.store.Store(ctx, key, html); err != nil {
		c.logger.Error("cache store failed", "key", key, "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.CacheStoresTotal.Inc()
	}
}

// GetOrCompute returns the cached HTML for key, or runs compute and stores
// its result. hit reports whether the value came from the store. Compute
// errors are returned and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (html string, hit bool, err error) {
	if html, ok := c.Lookup(ctx, key); ok {
		return html, true, nil
	}
	if c.mode == config.CacheModeSingleflight {
		return c.computeShared(ctx, key, compute)
	}
	html, err = c.compute(ctx, compute)
	if err != nil {
		return "", false, err
	}
	c.Store(ctx, key, html)
	return html, false, nil
}

// computeShared runs at most one computation per key at a time. Callers
// that join an in-flight computation receive its result, or its error if
// the leading caller's context was cancelled.
func (c *Cache) computeShared(ctx context.Context, key string, compute ComputeFunc) (string, bool, error) {
	v, err, shared := c.group.Do(key, func() (any, error) {
		if html, ok, err := c.store.Lookup(ctx, key); err == nil && ok {
			return html, nil
		}
		html, err := c.compute(ctx, compute)
		if err != nil {
			return nil, err
		}
		c.Store(ctx, key, html)
		return html, nil
	})
	if err != nil {
		return "", false, err
	}
	if shared {
		c.logger.Debug("joined in-flight computation", "key", key)
	}
	return v.(string), false, nil
}

func (c *Cache) compute(ctx context.Context, compute ComputeFunc) (string, error) {
	c.computations.Add(1)
	return compute(ctx)
}

func (c *Cache) Stats() Stats {
	entries := -1
	if s, ok := c.store.(Sizer); ok {
		entries = s.Len()
	}
	return Stats{
		Mode:         c.mode,
		Backend:      c.store.Name(),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Entries:      entries,
	}
}
