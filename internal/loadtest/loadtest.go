// Package loadtest drives concurrent search traffic against a running
// search API and summarizes latency and status codes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Query is one request shape sent to /api/v1/search.
type Query struct {
	Q      string
	Corpus string
	Field  string
}

// DefaultQueries mixes terms, booleans and phrases over both corpora.
var DefaultQueries = []Query{
	{Q: "love", Corpus: "songs", Field: "lyricsText"},
	{Q: "love AND night", Corpus: "songs", Field: "lyricsText"},
	{Q: `"broken heart"`, Corpus: "songs", Field: "lyricsText"},
	{Q: "(baby OR girl) AND dance", Corpus: "songs", Field: "lyricsText"},
	{Q: "queen", Corpus: "songs", Field: "singerName"},
	{Q: "hello", Corpus: "songs", Field: "songName"},
	{Q: "greatest hits", Corpus: "albums", Field: "albumName"},
	{Q: "1975", Corpus: "albums", Field: "albumYear"},
	{Q: "compilation", Corpus: "albums", Field: "albumType"},
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []Query
}

type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	Elapsed     time.Duration
	StatusCodes map[int]int64
	// Latencies is sorted ascending.
	Latencies []time.Duration
}

type recorder struct {
	total, success, errors atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (r *recorder) record(d time.Duration, status int, err error) {
	r.total.Add(1)
	if err != nil {
		r.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		r.success.Add(1)
	} else {
		r.errors.Add(1)
	}
	r.mu.Lock()
	r.latencies = append(r.latencies, d)
	r.codes[status]++
	r.mu.Unlock()
}

// Run sends requests from cfg.Concurrency workers until cfg.Duration elapses
// or ctx is cancelled.
func Run(ctx context.Context, client *http.Client, cfg Config) (*Report, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Limit < 1 {
		cfg.Limit = 10
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	rec := &recorder{latencies: make([]time.Duration, 0, 4096), codes: make(map[int]int64)}
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; gctx.Err() == nil; i++ {
				q := cfg.Queries[i%len(cfg.Queries)]
				d, status, err := send(gctx, client, searchURL(cfg.BaseURL, q, cfg.Limit))
				if gctx.Err() != nil {
					return nil
				}
				rec.record(d, status, err)
			}
			return nil
		})
	}
	g.Wait()

	slices.Sort(rec.latencies)
	return &Report{
		Total:       rec.total.Load(),
		Success:     rec.success.Load(),
		Errors:      rec.errors.Load(),
		Elapsed:     time.Since(start),
		StatusCodes: rec.codes,
		Latencies:   rec.latencies,
	}, nil
}

func searchURL(base string, q Query, limit int) string {
	params := url.Values{}
	params.Set("q", q.Q)
	params.Set("corpus", q.Corpus)
	params.Set("field", q.Field)
	params.Set("limit", fmt.Sprint(limit))
	params.Set("fields", "false")
	return base + "/api/v1/search?" + params.Encode()
}

func send(ctx context.Context, client *http.Client, target string) (time.Duration, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return time.Since(start), resp.StatusCode, nil
}

// Percentile returns the p-th percentile of the sorted latencies.
func (r *Report) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(r.Latencies)))) - 1
	idx = max(0, min(idx, len(r.Latencies)-1))
	return r.Latencies[idx]
}

// Print writes a human-readable summary to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.Total)/r.Elapsed.Seconds())
	}

	if n := len(r.Latencies); n > 0 {
		var sum time.Duration
		for _, l := range r.Latencies {
			sum += l
		}
		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(n))
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%-2.0f:    %s\n", p, r.Percentile(p))
		}
		fmt.Fprintf(w, "Max:    %s\n", r.Latencies[n-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
