package analytics

import "time"

type EventType string

const (
	EventSearch      EventType = "search"
	EventZeroResult  EventType = "zero_result"
	EventSyntaxError EventType = "syntax_error"
	EventBuild       EventType = "index_build"
)

// SearchEvent describes one answered (or rejected) search request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Corpus    string    `json:"corpus"`
	Field     string    `json:"field"`
	Query     string    `json:"query"`
	Canonical string    `json:"canonical,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// BuildEvent announces a committed corpus build.
type BuildEvent struct {
	Type       EventType `json:"type"`
	Corpus     string    `json:"corpus"`
	BuildID    string    `json:"build_id"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	Unmatched  int       `json:"unmatched"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
