package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog/source"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/linker"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/metrics"
)

// BuildStats summarizes one committed corpus build.
type BuildStats struct {
	Corpus    string        `json:"corpus"`
	BuildID   string        `json:"build_id"`
	Declared  int           `json:"declared"`
	Loaded    int           `json:"loaded"`
	Linked    int           `json:"linked"`
	Unmatched int           `json:"unmatched"`
	Skipped   int           `json:"skipped"`
	Indexed   int           `json:"indexed"`
	Terms     int           `json:"terms"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline runs full corpus builds into one data directory.
type Pipeline struct {
	dataDir string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPipeline returns a Pipeline writing under dataDir. m may be nil.
func NewPipeline(dataDir string, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		dataDir: dataDir,
		metrics: m,
		logger:  slog.Default().With("component", "build-pipeline"),
	}
}

// BuildSongs links songs with lyrics and indexes every linked pair. Songs
// without lyrics are left out; malformed pairs are skipped and counted.
func (p *Pipeline) BuildSongs(ctx context.Context, songs catalog.Batch[catalog.Song], lyrics catalog.Batch[catalog.Lyrics]) (BuildStats, error) {
	start := time.Now()
	corpus := document.CorpusSongs
	linked := linker.Link(songs.Records, lyrics.Records)
	p.logger.Info("records linked",
		"songs", len(songs.Records),
		"lyrics", len(lyrics.Records),
		"linked", len(linked.Pairs),
		"unmatched", linked.Unmatched,
		"duplicate_lyrics", linked.DuplicateLyrics,
	)
	p.countSkipped(corpus, "unmatched", linked.Unmatched)
	p.countSkipped(corpus, "source_row", songs.Skipped+lyrics.Skipped)

	stats := BuildStats{
		Corpus:    corpus.String(),
		Declared:  songs.Declared,
		Loaded:    len(songs.Records),
		Linked:    len(linked.Pairs),
		Unmatched: linked.Unmatched,
		Skipped:   songs.Skipped + lyrics.Skipped,
	}
	stats, err := p.build(ctx, corpus, stats, len(linked.Pairs), func(i int) (document.Document, error) {
		return document.FromPair(i, linked.Pairs[i])
	})
	p.observeBuild(corpus, start, err)
	return stats, err
}

// BuildAlbums indexes every well-formed album record.
func (p *Pipeline) BuildAlbums(ctx context.Context, albums catalog.Batch[catalog.Album]) (BuildStats, error) {
	start := time.Now()
	corpus := document.CorpusAlbums
	p.countSkipped(corpus, "source_row", albums.Skipped)

	stats := BuildStats{
		Corpus:   corpus.String(),
		Declared: albums.Declared,
		Loaded:   len(albums.Records),
		Linked:   len(albums.Records),
		Skipped:  albums.Skipped,
	}
	stats, err := p.build(ctx, corpus, stats, len(albums.Records), func(i int) (document.Document, error) {
		return document.FromAlbum(i, albums.Records[i])
	})
	p.observeBuild(corpus, start, err)
	return stats, err
}

// BuildAll reads every record set from src and builds both corpora
// concurrently, one writer per corpus. The first failure cancels the other
// build, which is then aborted.
func (p *Pipeline) BuildAll(ctx context.Context, src source.Source) ([]BuildStats, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]BuildStats, 2)

	g.Go(func() error {
		songs, err := src.Songs(gctx)
		if err != nil {
			return fmt.Errorf("loading songs: %w", err)
		}
		lyrics, err := src.Lyrics(gctx)
		if err != nil {
			return fmt.Errorf("loading lyrics: %w", err)
		}
		stats, err := p.BuildSongs(gctx, songs, lyrics)
		if err != nil {
			return fmt.Errorf("building songs index: %w", err)
		}
		results[0] = stats
		return nil
	})
	g.Go(func() error {
		albums, err := src.Albums(gctx)
		if err != nil {
			return fmt.Errorf("loading albums: %w", err)
		}
		stats, err := p.BuildAlbums(gctx, albums)
		if err != nil {
			return fmt.Errorf("building albums index: %w", err)
		}
		results[1] = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) build(
	ctx context.Context,
	corpus document.Corpus,
	stats BuildStats,
	n int,
	next func(i int) (document.Document, error),
) (BuildStats, error) {
	start := time.Now()
	b, err := NewBuilder(p.dataDir, corpus)
	if err != nil {
		return stats, err
	}
	stats.BuildID = b.BuildID()

	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				b.Abort()
				return stats, err
			}
		}
		doc, err := next(i)
		if errors.Is(err, apperrors.ErrMalformedRecord) {
			b.Skip()
			stats.Skipped++
			p.countSkipped(corpus, "malformed", 1)
			p.logger.Warn("skipping record", "corpus", corpus.String(), "error", err)
			continue
		}
		if err != nil {
			b.Abort()
			return stats, err
		}
		if _, err := b.AddDocument(doc); err != nil {
			if abortErr := b.Abort(); abortErr != nil {
				p.logger.Error("aborting build", "corpus", corpus.String(), "error", abortErr)
			}
			return stats, err
		}
	}

	manifest, err := b.Commit()
	if err != nil {
		return stats, err
	}
	stats.Indexed = manifest.DocCount
	stats.Terms = manifest.TermCount
	stats.Duration = time.Since(start)

	if p.metrics != nil {
		p.metrics.DocsIndexedTotal.WithLabelValues(corpus.String()).Add(float64(manifest.DocCount))
		p.metrics.IndexDocCount.WithLabelValues(corpus.String()).Set(float64(manifest.DocCount))
	}
	p.logger.Info("corpus built",
		"corpus", corpus.String(),
		"build_id", stats.BuildID,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

func (p *Pipeline) countSkipped(corpus document.Corpus, reason string, n int) {
	if p.metrics == nil || n == 0 {
		return
	}
	p.metrics.RecordsSkippedTotal.WithLabelValues(corpus.String(), reason).Add(float64(n))
}

func (p *Pipeline) observeBuild(corpus document.Corpus, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	p.metrics.BuildDuration.WithLabelValues(corpus.String(), status).Observe(time.Since(start).Seconds())
}
