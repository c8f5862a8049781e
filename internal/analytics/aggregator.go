package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64      `json:"total_searches"`
	CacheHits         int64      `json:"cache_hits"`
	CacheMisses       int64      `json:"cache_misses"`
	Errors            int64      `json:"errors"`
	HitRatio          float64    `json:"hit_ratio"`
	ZeroResultCount   int64      `json:"zero_result_count"`
	AvgLatencyMs      float64    `json:"avg_latency_ms"`
	P50LatencyMs      int64      `json:"p50_latency_ms"`
	P95LatencyMs      int64      `json:"p95_latency_ms"`
	P99LatencyMs      int64      `json:"p99_latency_ms"`
	TopKeys           []KeyCount `json:"top_keys"`
	ZeroResultKeys    []KeyCount `json:"zero_result_keys"`
	SearchesPerMinute float64    `json:"searches_per_minute"`
}

type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu             sync.RWMutex
	totalSearches  atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	errors         atomic.Int64
	zeroResults    atomic.Int64
	latencies      []int64
	keyCounts      map[string]int64
	zeroResultKeys map[string]int64
	startTime      time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. consumer may be nil when events are
// recorded in-process through Track.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:      make([]int64, 0, 1024),
		keyCounts:      make(map[string]int64),
		zeroResultKeys: make(map[string]int64),
		startTime:      time.Now(),
		consumer:       consumer,
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetConsumer attaches the Kafka consumer Start will run.
func (a *Aggregator) SetConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start consumes the event topic until ctx is cancelled. Without a consumer
// it just waits for ctx.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		<-ctx.Done()
		return nil
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes Kafka messages into the aggregator. Undecodable
// messages are logged and acknowledged.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

// Track records event.
func (a *Aggregator) Track(event SearchEvent) {
	a.totalSearches.Add(1)

	if event.Error != "" {
		a.errors.Add(1)
	} else if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}

	zero := !event.CacheHit && event.Error == "" && event.MatchedFiles == 0
	if zero {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		copy(a.latencies, a.latencies[1:])
		a.latencies = a.latencies[:len(a.latencies)-1]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.keyCounts[event.Key]++
	if zero {
		a.zeroResultKeys[event.Key]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		Errors:          a.errors.Load(),
		ZeroResultCount: a.zeroResults.Load(),
	}
	if served := stats.CacheHits + stats.CacheMisses; served > 0 {
		stats.HitRatio = float64(stats.CacheHits) / float64(served)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopKeys = topN(a.keyCounts, 10)
	stats.ZeroResultKeys = topN(a.zeroResultKeys, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.SearchesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent keys, ties broken by key.
func topN(counts map[string]int64, n int) []KeyCount {
	result := make([]KeyCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, KeyCount{Key: key, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
