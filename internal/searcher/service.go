// Package searcher is the query surface over the opened corpus indexes:
// ranked search, document lookup and corpus metadata.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/tracing"
)

// Index is an opened corpus index as used by the service.
type Index interface {
	executor.Index
	Document(id uint32) (document.Stored, error)
	Manifest() indexer.Manifest
}

type Options struct {
	MaxResults int
	Cache      *cache.QueryCache
	Collector  *analytics.Collector
	Metrics    *metrics.Metrics
}

type corpusIndex struct {
	ix   Index
	exec *executor.Executor
}

// Service answers queries against a fixed set of read-only indexes. All
// methods are safe for concurrent use.
type Service struct {
	indexes map[document.Corpus]corpusIndex
	opts    Options
	logger  *slog.Logger
}

// CorpusInfo describes one opened corpus.
type CorpusInfo struct {
	Corpus    string           `json:"corpus"`
	BuildID   string           `json:"build_id"`
	Documents int              `json:"documents"`
	Fields    []document.Field `json:"fields"`
	BuiltAt   time.Time        `json:"built_at"`
}

func NewService(indexes []Index, opts Options) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	s := &Service{
		indexes: make(map[document.Corpus]corpusIndex, len(indexes)),
		opts:    opts,
		logger:  slog.Default().With("component", "search-service"),
	}
	for _, ix := range indexes {
		s.indexes[ix.Corpus()] = corpusIndex{ix: ix, exec: executor.New(ix)}
		if opts.Metrics != nil {
			opts.Metrics.IndexDocCount.WithLabelValues(ix.Corpus().String()).Set(float64(ix.TotalDocs()))
		}
	}
	return s
}

// Open opens every corpus index under dataDir. Any failure closes what was
// already opened and is returned as an IndexIOError.
func Open(dataDir string, opts Options) (*Service, []*indexer.Index, error) {
	opened := make([]*indexer.Index, 0, len(document.Corpora))
	indexes := make([]Index, 0, len(document.Corpora))
	for _, c := range document.Corpora {
		ix, err := indexer.Open(dataDir, c)
		if err != nil {
			for _, o := range opened {
				o.Close()
			}
			return nil, nil, err
		}
		opened = append(opened, ix)
		indexes = append(indexes, ix)
	}
	return NewService(indexes, opts), opened, nil
}

func (s *Service) lookup(corpus string) (document.Corpus, corpusIndex, error) {
	c, err := document.ParseCorpus(corpus)
	if err != nil {
		return 0, corpusIndex{}, err
	}
	ci, ok := s.indexes[c]
	if !ok {
		return 0, corpusIndex{}, fmt.Errorf("%w: %s index is not loaded", apperrors.ErrUnknownCorpus, c)
	}
	return c, ci, nil
}

// Search parses query against field of corpus and returns at most topK
// ranked documents. topK is capped at the configured maximum.
func (s *Service) Search(ctx context.Context, query, field, corpus string, topK int) (*executor.SearchResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	ctx, span := tracing.Start(ctx, "search")
	defer span.End()
	span.SetAttr("corpus", corpus)

	c, ci, err := s.lookup(corpus)
	if err != nil {
		return nil, err
	}
	f, err := document.ParseField(c, field)
	if err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be at least 1, got %d", apperrors.ErrInvalidInput, topK)
	}
	if topK > s.opts.MaxResults {
		topK = s.opts.MaxResults
	}

	_, parseSpan := tracing.Start(ctx, "parse")
	q, err := parser.Parse(query, f)
	parseSpan.End()
	if err != nil {
		s.countQuery(c, "syntax_error")
		s.track(ctx, analytics.SearchEvent{
			Type:   analytics.EventSyntaxError,
			Corpus: c.String(),
			Field:  string(f),
			Query:  query,
		}, start)
		log.Info("query rejected", "corpus", c.String(), "field", f, "query", query, "error", err)
		return nil, err
	}

	compute := func() (*executor.SearchResult, error) {
		ctx, execSpan := tracing.Start(ctx, "execute")
		defer execSpan.End()
		return ci.exec.Execute(ctx, q, topK)
	}
	var result *executor.SearchResult
	cacheHit := false
	if s.opts.Cache != nil {
		key := cache.Key{
			Corpus:  c.String(),
			BuildID: ci.ix.Manifest().BuildID,
			Query:   q.String(),
			Limit:   topK,
		}
		result, cacheHit, err = s.opts.Cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		s.countQuery(c, "error")
		log.Error("search execution failed", "corpus", c.String(), "query", q.String(), "error", err)
		return nil, err
	}

	resultType := "hit"
	eventType := analytics.EventSearch
	if result.TotalHits == 0 {
		resultType = "zero_result"
		eventType = analytics.EventZeroResult
	}
	span.SetAttr("total_hits", result.TotalHits)
	span.SetAttr("cache_hit", cacheHit)
	s.countQuery(c, resultType)
	s.observe(c, cacheHit, start, len(result.Results))
	s.track(ctx, analytics.SearchEvent{
		Type:      eventType,
		Corpus:    c.String(),
		Field:     string(f),
		Query:     query,
		Canonical: q.String(),
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		CacheHit:  cacheHit,
	}, start)

	log.Info("search completed",
		"corpus", c.String(),
		"query", q.String(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// GetDocument returns the stored fields of docID in corpus.
func (s *Service) GetDocument(docID uint32, corpus string) (document.Stored, error) {
	_, ci, err := s.lookup(corpus)
	if err != nil {
		return nil, err
	}
	return ci.ix.Document(docID)
}

// TotalDocuments is the document count of corpus.
func (s *Service) TotalDocuments(corpus string) (int, error) {
	_, ci, err := s.lookup(corpus)
	if err != nil {
		return 0, err
	}
	return ci.ix.TotalDocs(), nil
}

// Fields lists the searchable fields of corpus.
func (s *Service) Fields(corpus string) ([]document.Field, error) {
	c, _, err := s.lookup(corpus)
	if err != nil {
		return nil, err
	}
	return c.Fields(), nil
}

// Info describes corpus.
func (s *Service) Info(corpus string) (CorpusInfo, error) {
	c, ci, err := s.lookup(corpus)
	if err != nil {
		return CorpusInfo{}, err
	}
	m := ci.ix.Manifest()
	return CorpusInfo{
		Corpus:    c.String(),
		BuildID:   m.BuildID,
		Documents: ci.ix.TotalDocs(),
		Fields:    c.Fields(),
		BuiltAt:   m.CreatedAt,
	}, nil
}

// Ping checks every loaded index for readability.
func (s *Service) Ping(context.Context) error {
	var errs []error
	for c, ci := range s.indexes {
		if p, ok := ci.ix.(interface{ Ping() error }); ok {
			if err := p.Ping(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Service) countQuery(c document.Corpus, resultType string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.SearchQueriesTotal.WithLabelValues(c.String(), resultType).Inc()
	}
}

func (s *Service) observe(c document.Corpus, cacheHit bool, start time.Time, returned int) {
	m := s.opts.Metrics
	if m == nil {
		return
	}
	status := "disabled"
	if s.opts.Cache != nil {
		if cacheHit {
			status = "hit"
			m.CacheHitsTotal.Inc()
		} else {
			status = "miss"
			m.CacheMissesTotal.Inc()
		}
	}
	m.SearchLatency.WithLabelValues(c.String(), status).Observe(time.Since(start).Seconds())
	m.SearchResultsCount.WithLabelValues(c.String()).Observe(float64(returned))
}

func (s *Service) track(ctx context.Context, e analytics.SearchEvent, start time.Time) {
	if s.opts.Collector == nil {
		return
	}
	e.LatencyMs = time.Since(start).Milliseconds()
	e.Timestamp = time.Now().UTC()
	e.RequestID = logger.RequestID(ctx)
	s.opts.Collector.Track(e)
}

// CacheStats reports cache hit and miss counts, or ok=false when caching is
// disabled.
func (s *Service) CacheStats() (hits, misses int64, ok bool) {
	if s.opts.Cache == nil {
		return 0, 0, false
	}
	hits, misses = s.opts.Cache.Stats()
	return hits, misses, true
}

// InvalidateCache drops every cached result.
func (s *Service) InvalidateCache(ctx context.Context) (int64, error) {
	if s.opts.Cache == nil {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled")
	}
	return s.opts.Cache.Invalidate(ctx)
}
