// Package source reads complete song, lyrics and album record sets from the
// CSV exports or from the catalog database, normalizing names on the way in.
package source

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/postgres"
)

// Source delivers full record sets. Implementations normalize artist and
// title fields before returning.
type Source interface {
	Songs(ctx context.Context) (catalog.Batch[catalog.Song], error)
	Lyrics(ctx context.Context) (catalog.Batch[catalog.Lyrics], error)
	Albums(ctx context.Context) (catalog.Batch[catalog.Album], error)
	Close() error
}

// Open builds the Source selected by cfg.Source.Kind.
func Open(cfg *config.Config) (Source, error) {
	switch cfg.Source.Kind {
	case "csv":
		return NewCSV(cfg.Source.SongsPath, cfg.Source.LyricsPath, cfg.Source.AlbumsPath), nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("opening catalog database: %w", err)
		}
		return NewPostgres(client), nil
	default:
		return nil, fmt.Errorf("unknown record source %q", cfg.Source.Kind)
	}
}
