package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/redis"
)

// app is the assembled search pipeline plus the optional backends it was
// wired to.
type app struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	scanner    *corpus.Scanner
	service    *searcher.Service
	aggregator *analytics.Aggregator
	snapshots  *snapshot.Store
	checker    *health.Checker
	closers    []func(context.Context) error
}

// buildApp wires the pipeline from cfg. Background analytics (Kafka and
// PostgreSQL) only start when withBackground is set; otherwise events are
// recorded by the in-process aggregator. Optional backends that cannot be
// reached are logged and skipped.
func buildApp(ctx context.Context, cfg *config.Config, withBackground bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		metrics: metrics.New(),
		checker: health.NewChecker(),
	}

	a.scanner = corpus.New(cfg.Corpus.Root, cfg.Corpus, a.metrics)
	if err := a.scanner.Check(); err != nil {
		return nil, err
	}
	a.checker.Register("corpus", health.FromError(func(context.Context) error {
		return a.scanner.Check()
	}))

	store := a.buildStore(ctx)
	responses := cache.New(store, cfg.Cache.Mode, a.metrics)

	a.aggregator = analytics.NewAggregator(nil)
	var tracker analytics.Tracker = a.aggregator
	if withBackground && cfg.Analytics.Enabled {
		tracker = a.startEventPipeline(ctx)
	}
	if withBackground && cfg.Analytics.SnapshotEnabled {
		a.startSnapshots(ctx)
	}

	a.service = searcher.New(responses, a.scanner, report.New(cfg.Corpus.Root), searcher.Options{
		Metrics: a.metrics,
		Tracker: tracker,
		Tracing: cfg.Tracing.Enabled,
	})

	slog.Info("search pipeline ready",
		"root", cfg.Corpus.Root,
		"cache_mode", responses.Mode(),
		"cache_backend", store.Name(),
		"failure_policy", cfg.Corpus.FailurePolicy,
		"max_workers", cfg.Corpus.MaxWorkers,
	)
	return a, nil
}

func (a *app) buildStore(ctx context.Context) cache.Store {
	if a.cfg.Cache.Backend != config.CacheBackendRedis {
		return cache.NewMemory()
	}
	client, err := pkgredis.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "error", err)
		return cache.NewMemory()
	}
	store, err := cache.NewRedis(client, a.cfg.Redis, a.metrics)
	if err != nil {
		client.Close()
		slog.Warn("redis cache setup failed, using in-memory cache", "error", err)
		return cache.NewMemory()
	}
	a.checker.Register("redis", health.Degradable(client.Ping))
	a.closers = append(a.closers, store.Close, func(context.Context) error { return client.Close() })
	slog.Info("redis cache enabled", "addr", a.cfg.Redis.Addr, "namespace", store.Namespace())
	return store
}

func (a *app) startEventPipeline(ctx context.Context) analytics.Tracker {
	producer := kafka.NewProducer(a.cfg.Kafka)
	collector := analytics.NewCollector(producer, a.cfg.Analytics.BatchSize, a.cfg.Analytics.FlushInterval)
	collector.Start(ctx)

	a.aggregator.SetConsumer(kafka.NewConsumer(a.cfg.Kafka, analytics.HandleEvent(a.aggregator)))
	go func() {
		if err := a.aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	a.closers = append(a.closers, func(context.Context) error {
		collector.Close()
		return producer.Close()
	})
	slog.Info("analytics pipeline started", "topic", a.cfg.Kafka.Topic, "brokers", a.cfg.Kafka.Brokers)
	return collector
}

func (a *app) startSnapshots(ctx context.Context) {
	db, err := postgres.New(ctx, a.cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		return
	}
	store := snapshot.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		slog.Warn("analytics snapshots disabled", "error", err)
		return
	}
	store.StartPeriodicSave(ctx, a.aggregator, a.cfg.Analytics.SnapshotInterval)
	a.snapshots = store
	a.checker.Register("postgres", health.Degradable(db.Ping))
	a.closers = append(a.closers, func(context.Context) error {
		store.Wait()
		return db.Close()
	})
}

// snapshotReader returns the snapshot store as an interface, nil when
// snapshots are disabled.
func (a *app) snapshotReader() analytics.SnapshotReader {
	if a.snapshots == nil {
		return nil
	}
	return a.snapshots
}

// Close releases backends in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
