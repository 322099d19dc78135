package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

// Column layout of the CSV exports. Column 0 is a row number in every file.
const (
	songArtistCol = 2
	songTitleCol  = 3
	songHrefCol   = 4

	lyricsHrefCol   = 1
	lyricsArtistCol = 2
	lyricsTitleCol  = 3
	lyricsTextCol   = 4

	albumArtistCol = 2
	albumNameCol   = 3
	albumTypeCol   = 4
	albumYearCol   = 5
)

// CSV reads songs.csv, lyrics.csv and albums.csv exports. Each file has a
// header row which is skipped.
type CSV struct {
	songsPath  string
	lyricsPath string
	albumsPath string
	logger     *slog.Logger
}

func NewCSV(songsPath, lyricsPath, albumsPath string) *CSV {
	return &CSV{
		songsPath:  songsPath,
		lyricsPath: lyricsPath,
		albumsPath: albumsPath,
		logger:     slog.Default().With("component", "csv-source"),
	}
}

func (c *CSV) Songs(ctx context.Context) (catalog.Batch[catalog.Song], error) {
	return readCSV(ctx, c.songsPath, "song", songHrefCol+1, c.logger, func(row []string) catalog.Song {
		return catalog.Song{
			Artist: row[songArtistCol],
			Title:  row[songTitleCol],
			Href:   row[songHrefCol],
		}.Normalized()
	})
}

func (c *CSV) Lyrics(ctx context.Context) (catalog.Batch[catalog.Lyrics], error) {
	return readCSV(ctx, c.lyricsPath, "lyrics", lyricsTextCol+1, c.logger, func(row []string) catalog.Lyrics {
		return catalog.Lyrics{
			Artist: row[lyricsArtistCol],
			Title:  row[lyricsTitleCol],
			Href:   row[lyricsHrefCol],
			Lines:  SplitLines(row[lyricsTextCol]),
		}.Normalized()
	})
}

func (c *CSV) Albums(ctx context.Context) (catalog.Batch[catalog.Album], error) {
	return readCSV(ctx, c.albumsPath, "album", albumYearCol+1, c.logger, func(row []string) catalog.Album {
		return catalog.Album{
			Artist: row[albumArtistCol],
			Name:   row[albumNameCol],
			Type:   row[albumTypeCol],
			Year:   row[albumYearCol],
		}.Normalized()
	})
}

func (c *CSV) Close() error { return nil }

// SplitLines splits a lyrics blob into lines, accepting \r\n endings.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// readCSV counts the data rows first so the record slice is allocated once
// with the declared size, then parses each row with build. Rows with fewer
// than minCols columns are skipped as malformed.
func readCSV[T any](
	ctx context.Context,
	path, kind string,
	minCols int,
	logger *slog.Logger,
	build func(row []string) T,
) (catalog.Batch[T], error) {
	var batch catalog.Batch[T]
	declared, err := countRows(path)
	if err != nil {
		return batch, err
	}
	batch.Declared = declared
	batch.Records = make([]T, 0, declared)

	f, err := os.Open(path)
	if err != nil {
		return batch, fmt.Errorf("opening %s file: %w", kind, err)
	}
	defer f.Close()

	r := newReader(f)
	if _, err := r.Read(); err != nil && !errors.Is(err, io.EOF) {
		return batch, fmt.Errorf("reading %s header: %w", kind, err)
	}
	for i := 0; ; i++ {
		if i%1024 == 0 && ctx.Err() != nil {
			return batch, ctx.Err()
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return batch, fmt.Errorf("reading %s row %d: %w", kind, i, err)
		}
		if len(row) < minCols {
			batch.Skipped++
			logger.Warn("skipping record",
				"error", &apperrors.MalformedRecordError{
					Kind:   kind,
					Index:  i,
					Reason: fmt.Sprintf("expected at least %d columns, got %d", minCols, len(row)),
				},
			)
			continue
		}
		batch.Records = append(batch.Records, build(row))
	}
	logger.Info("records loaded",
		"kind", kind,
		"path", path,
		"declared", batch.Declared,
		"loaded", len(batch.Records),
		"skipped", batch.Skipped,
	)
	return batch, nil
}

func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	r := newReader(f)
	n := 0
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("counting rows in %s: %w", path, err)
		}
		n++
	}
	if n > 0 {
		n--
	}
	return n, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}
