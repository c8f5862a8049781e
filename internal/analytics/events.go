// Package analytics tracks handled searches. Events are either published to
// Kafka in batches and folded back in by a consumer, or recorded directly by
// the in-process Aggregator.
package analytics

import "time"

type EventType string

const (
	EventCacheHit  EventType = "cache_hit"
	EventCacheMiss EventType = "cache_miss"
	EventError     EventType = "search_error"
)

// SearchEvent describes one handled search request. MatchedFiles and
// TotalOccurrences are only known when the request was computed, not when it
// was served from the cache.
type SearchEvent struct {
	Type             EventType `json:"type"`
	Key              string    `json:"key"`
	Words            []string  `json:"words"`
	MatchedFiles     int       `json:"matched_files"`
	TotalOccurrences int       `json:"total_occurrences"`
	CacheHit         bool      `json:"cache_hit"`
	LatencyMs        int64     `json:"latency_ms"`
	Method           string    `json:"method,omitempty"`
	RequestID        string    `json:"request_id,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Tracker receives search events. Implementations must not block.
type Tracker interface {
	Track(event SearchEvent)
}
