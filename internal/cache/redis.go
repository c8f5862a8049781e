package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/resilience"
	"lukechampine.com/blake3"
)

// RedisClient is the subset of pkg/redis.Client the store needs.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Redis keeps entries in Redis under a namespace unique to this process, so
// a restarted process starts cold. Entries carry no TTL. Calls go through a
// circuit breaker: while it is open every lookup is a miss and every store
// is dropped.
type Redis struct {
	client    RedisClient
	namespace string
	breaker   *resilience.CircuitBreaker
	logger    *slog.Logger
}

// NewRedis builds a store on client. m may be nil.
func NewRedis(client RedisClient, cfg config.RedisConfig, m *metrics.Metrics) (*Redis, error) {
	instance := make([]byte, 8)
	if _, err := rand.Read(instance); err != nil {
		return nil, fmt.Errorf("generating cache namespace: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "corpus-search"
	}
	r := &Redis{
		client:    client,
		namespace: fmt.Sprintf("%s:%s:", prefix, hex.EncodeToString(instance)),
		logger:    slog.Default().With("component", "redis-cache"),
	}
	r.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		ResetTimeout: cfg.BreakerReset,
		OnStateChange: func(name string, from, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return r, nil
}

func (r *Redis) Name() string { return "redis" }

// Namespace is the key prefix owned by this process.
func (r *Redis) Namespace() string { return r.namespace }

func (r *Redis) Lookup(ctx context.Context, key string) (string, bool, error) {
	var (
		html  string
		found bool
	)
	err := r.breaker.Execute(func() error {
		v, err := r.client.Get(ctx, r.redisKey(key))
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil
			}
			return err
		}
		html, found = v, true
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: get: %w", apperrors.ErrCacheUnavailable, err)
	}
	return html, found, nil
}

func (r *Redis) Store(ctx context.Context, key, html string) error {
	err := r.breaker.Execute(func() error {
		return r.client.Set(ctx, r.redisKey(key), html, 0)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			r.logger.Debug("store dropped, circuit open", "key", key)
			return nil
		}
		return fmt.Errorf("%w: set: %w", apperrors.ErrCacheUnavailable, err)
	}
	return nil
}

// Close removes every key this process wrote.
func (r *Redis) Close(ctx context.Context) error {
	deleted, err := r.client.FlushByPattern(ctx, r.namespace+"*")
	if err != nil {
		return fmt.Errorf("flushing cache namespace: %w", err)
	}
	r.logger.Info("cache namespace flushed", "keys_deleted", deleted)
	return nil
}

// redisKey hashes the cache key so arbitrary path text never reaches the
// Redis keyspace verbatim.
func (r *Redis) redisKey(key string) string {
	sum := blake3.Sum256([]byte(key))
	return r.namespace + hex.EncodeToString(sum[:16])
}
