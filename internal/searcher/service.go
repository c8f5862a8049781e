// Package searcher turns a request path into a cached HTML search report.
// A path such as /cat/dog becomes the cache key "cat&dog" and the query
// words ["cat", "dog"]; misses scan the corpus and render a fresh report.
package searcher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/tracing"
)

type Scanner interface {
	Scan(ctx context.Context, words []string) ([]corpus.FileOccurrence, error)
}

type Renderer interface {
	Render(ctx context.Context, words []string, matched []corpus.FileOccurrence) (string, error)
}

// Request is one search. Method and RemoteAddr are only used for logging
// and analytics.
type Request struct {
	Segments   []string
	Method     string
	RemoteAddr string
}

// Options holds the optional collaborators of a Service.
type Options struct {
	Metrics *metrics.Metrics
	Tracker analytics.Tracker
	Tracing bool
}

type Service struct {
	cache    *cache.Cache
	scanner  Scanner
	renderer Renderer
	metrics  *metrics.Metrics
	tracker  analytics.Tracker
	tracing  bool
	logger   *slog.Logger
}

func New(c *cache.Cache, scanner Scanner, renderer Renderer, opts Options) *Service {
	return &Service{
		cache:    c,
		scanner:  scanner,
		renderer: renderer,
		metrics:  opts.Metrics,
		tracker:  opts.Tracker,
		tracing:  opts.Tracing,
		logger:   slog.Default().With("component", "searcher"),
	}
}

// CacheKey joins path segments with "&".
func CacheKey(segments []string) string {
	return strings.Join(segments, "&")
}

// QueryWords recovers the query words from a cache key. Every "&" becomes a
// separator, and empty words are kept.
func QueryWords(key string) []string {
	return strings.Split(strings.ReplaceAll(key, "&", " "), " ")
}

// SplitPath returns the non-empty slash-delimited segments of path.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Handle answers req from the cache, or scans the corpus, renders the report
// and stores it. Scan and render errors are returned and nothing is cached.
func (s *Service) Handle(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if len(req.Segments) == 0 {
		s.record("error", start)
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "no search words in path")
	}

	key := CacheKey(req.Segments)
	words := QueryWords(key)

	var root *tracing.Span
	if s.tracing {
		traceID := logger.RequestID(ctx)
		if traceID == "" {
			traceID = newTraceID()
		}
		ctx, root = tracing.StartSpan(ctx, "handle", traceID)
		root.SetAttr("key", key)
	}

	var matched []corpus.FileOccurrence
	computed := false
	html, hit, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (string, error) {
		computed = true
		scanCtx, scanSpan := tracing.StartChildSpan(ctx, "scan")
		files, err := s.scanner.Scan(scanCtx, words)
		scanSpan.SetAttr("matched", len(files))
		scanSpan.End()
		if err != nil {
			return "", err
		}
		matched = files

		renderCtx, renderSpan := tracing.StartChildSpan(ctx, "render")
		defer renderSpan.End()
		return s.renderer.Render(renderCtx, words, files)
	})

	if root != nil {
		root.SetAttr("cache_hit", hit)
		root.End()
		root.Log(log)
	}

	event := analytics.SearchEvent{
		Type:      analytics.EventCacheMiss,
		Key:       key,
		Words:     words,
		CacheHit:  hit,
		LatencyMs: time.Since(start).Milliseconds(),
		Method:    req.Method,
		RequestID: logger.RequestID(ctx),
		Timestamp: time.Now().UTC(),
	}

	if err != nil {
		log.Error("search failed", "key", key, "error", err)
		s.record("error", start)
		event.Type = analytics.EventError
		event.Error = err.Error()
		s.track(event)
		return "", err
	}

	if hit {
		log.Info("cache hit", "key", key, "method", req.Method, "remote_addr", req.RemoteAddr)
		s.record("hit", start)
		event.Type = analytics.EventCacheHit
	} else {
		s.record("miss", start)
		if computed {
			event.MatchedFiles = len(matched)
			for _, f := range matched {
				event.TotalOccurrences += f.Count
			}
		}
	}
	s.track(event)
	return html, nil
}

func (s *Service) record(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.SearchLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (s *Service) track(event analytics.SearchEvent) {
	if s.tracker != nil {
		s.tracker.Track(event)
	}
}

// CacheStats exposes the response cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func newTraceID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
