package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/postgres"
)

const (
	countSongsQuery  = `SELECT COUNT(*) FROM songs`
	selectSongsQuery = `SELECT artist_name, song_title, source_href FROM songs ORDER BY id`

	countLyricsQuery  = `SELECT COUNT(*) FROM lyrics`
	selectLyricsQuery = `SELECT artist_name, song_title, source_href, lyrics_text FROM lyrics ORDER BY id`

	countAlbumsQuery  = `SELECT COUNT(*) FROM albums`
	selectAlbumsQuery = `SELECT artist_name, album_name, album_type, release_year FROM albums ORDER BY id`
)

// Postgres reads the catalog from the songs, lyrics and albums tables. Each
// record kind is read inside one read-only transaction so the declared count
// and the rows come from the same snapshot.
type Postgres struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewPostgres(client *postgres.Client) *Postgres {
	return &Postgres{
		client: client,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

func (p *Postgres) Songs(ctx context.Context) (catalog.Batch[catalog.Song], error) {
	return readTable(ctx, p, "song", countSongsQuery, selectSongsQuery, func(rows *sql.Rows) (catalog.Song, error) {
		var s catalog.Song
		var href sql.NullString
		if err := rows.Scan(&s.Artist, &s.Title, &href); err != nil {
			return s, err
		}
		s.Href = href.String
		return s.Normalized(), nil
	})
}

func (p *Postgres) Lyrics(ctx context.Context) (catalog.Batch[catalog.Lyrics], error) {
	return readTable(ctx, p, "lyrics", countLyricsQuery, selectLyricsQuery, func(rows *sql.Rows) (catalog.Lyrics, error) {
		var l catalog.Lyrics
		var href, text sql.NullString
		if err := rows.Scan(&l.Artist, &l.Title, &href, &text); err != nil {
			return l, err
		}
		l.Href = href.String
		if text.Valid {
			l.Lines = SplitLines(text.String)
		}
		return l.Normalized(), nil
	})
}

func (p *Postgres) Albums(ctx context.Context) (catalog.Batch[catalog.Album], error) {
	return readTable(ctx, p, "album", countAlbumsQuery, selectAlbumsQuery, func(rows *sql.Rows) (catalog.Album, error) {
		var a catalog.Album
		var albumType, year sql.NullString
		if err := rows.Scan(&a.Artist, &a.Name, &albumType, &year); err != nil {
			return a, err
		}
		a.Type = albumType.String
		a.Year = strings.TrimSpace(year.String)
		return a.Normalized(), nil
	})
}

func (p *Postgres) Close() error {
	return p.client.Close()
}

func readTable[T any](
	ctx context.Context,
	p *Postgres,
	kind, countQuery, selectQuery string,
	scan func(rows *sql.Rows) (T, error),
) (catalog.Batch[T], error) {
	var batch catalog.Batch[T]
	err := p.client.InTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countQuery).Scan(&batch.Declared); err != nil {
			return fmt.Errorf("counting %s rows: %w", kind, err)
		}
		batch.Records = make([]T, 0, batch.Declared)

		rows, err := tx.QueryContext(ctx, selectQuery)
		if err != nil {
			return fmt.Errorf("querying %s rows: %w", kind, err)
		}
		defer rows.Close()

		for i := 0; rows.Next(); i++ {
			rec, err := scan(rows)
			if err != nil {
				batch.Skipped++
				p.logger.Warn("skipping record", "kind", kind, "index", i, "error", err)
				continue
			}
			batch.Records = append(batch.Records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return catalog.Batch[T]{}, err
	}
	p.logger.Info("records loaded",
		"kind", kind,
		"declared", batch.Declared,
		"loaded", len(batch.Records),
		"skipped", batch.Skipped,
	)
	return batch, nil
}
