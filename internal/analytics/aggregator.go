package analytics

import (
	"sort"
	"sync"
	"time"
)

const (
	maxLatencySamples = 10000
	DefaultTopQueries = 10
	MaxTopQueries     = 100
)

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByCorpus  map[string]int64 `json:"searches_by_corpus"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	SyntaxErrorCount  int64            `json:"syntax_error_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps in-process search statistics. Latency samples are kept in
// a ring of the most recent maxLatencySamples searches.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	byCorpus          map[string]int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	syntaxErrors      int64
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byCorpus:          make(map[string]int64),
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
	}
}

func (a *Aggregator) Record(e SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.Type == EventSyntaxError {
		a.syntaxErrors++
		return
	}
	a.totalSearches++
	a.byCorpus[e.Corpus]++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}

	key := e.Canonical
	if key == "" {
		key = e.Query
	}
	a.queryCounts[key]++
	if e.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[key]++
	}
}

// Stats snapshots the counters. top bounds the query lists; values below 1
// use DefaultTopQueries.
func (a *Aggregator) Stats(top int) AggregatedStats {
	if top < 1 {
		top = DefaultTopQueries
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		SearchesByCorpus: make(map[string]int64, len(a.byCorpus)),
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
		SyntaxErrorCount: a.syntaxErrors,
	}
	for k, v := range a.byCorpus {
		stats.SearchesByCorpus[k] = v
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
	stats.TopQueries = topN(a.queryCounts, top)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, top)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
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

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
