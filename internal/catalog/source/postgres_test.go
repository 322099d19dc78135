package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedStatements = []string{
	`CREATE TABLE songs (
		id SERIAL PRIMARY KEY,
		artist_name TEXT,
		song_title TEXT,
		source_href TEXT
	)`,
	`CREATE TABLE lyrics (
		id SERIAL PRIMARY KEY,
		artist_name TEXT,
		song_title TEXT,
		source_href TEXT,
		lyrics_text TEXT
	)`,
	`CREATE TABLE albums (
		id SERIAL PRIMARY KEY,
		artist_name TEXT,
		album_name TEXT,
		album_type TEXT,
		release_year TEXT
	)`,
	`INSERT INTO songs (artist_name, song_title, source_href) VALUES
		('Queen Lyrics', 'Bohemian Rhapsody (Remastered)', '/q/bohemian'),
		(NULL, 'Orphan Track', '/x/orphan'),
		('Simon & Garfunkel', 'The Boxer', NULL)`,
	`INSERT INTO lyrics (artist_name, song_title, source_href, lyrics_text) VALUES
		('Queen Lyrics', 'Bohemian Rhapsody', '/q/bohemian', E'Is this the real life?\r\nIs this just fantasy?'),
		('Simon & Garfunkel', 'The Boxer', NULL, NULL),
		('Nobody', NULL, '/n/none', 'la la')`,
	`INSERT INTO albums (artist_name, album_name, album_type, release_year) VALUES
		('Queen Lyrics', 'A Night at the Opera', 'Album', ' 1975 '),
		('Queen', NULL, 'Album', '1977'),
		('Simon & Garfunkel', 'Bridge over Troubled Water', NULL, NULL)`,
}

// newSeededPostgres creates a throwaway schema holding the three catalog
// tables and returns a source whose search_path points at it. The test is
// skipped when no database is reachable through the MS_POSTGRES_* settings.
func newSeededPostgres(t *testing.T) *Postgres {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	admin, err := postgres.New(cfg.Postgres)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { admin.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := fmt.Sprintf("catalog_test_%d", time.Now().UnixNano())
	_, err = admin.DB.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		admin.DB.Exec("DROP SCHEMA " + schema + " CASCADE")
	})

	pgCfg := cfg.Postgres
	pgCfg.Schema = schema
	client, err := postgres.New(pgCfg)
	require.NoError(t, err)

	for _, stmt := range seedStatements {
		_, err := client.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	src := NewPostgres(client)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestPostgresSongs(t *testing.T) {
	src := newSeededPostgres(t)

	batch, err := src.Songs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Declared)
	assert.Equal(t, 1, batch.Skipped, "NULL artist cannot be scanned")
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "Queen", batch.Records[0].Artist)
	assert.Equal(t, "Bohemian Rhapsody", batch.Records[0].Title)
	assert.Equal(t, "/q/bohemian", batch.Records[0].Href)
	assert.Equal(t, "Simon", batch.Records[1].Artist)
	assert.Equal(t, "The Boxer", batch.Records[1].Title)
	assert.Empty(t, batch.Records[1].Href)
}

func TestPostgresLyrics(t *testing.T) {
	src := newSeededPostgres(t)

	batch, err := src.Lyrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Declared)
	assert.Equal(t, 1, batch.Skipped, "NULL title cannot be scanned")
	require.Len(t, batch.Records, 2)

	queen := batch.Records[0]
	assert.Equal(t, "Queen", queen.Artist)
	assert.Equal(t, []string{"Is this the real life?", "Is this just fantasy?"}, queen.Lines)

	boxer := batch.Records[1]
	assert.Equal(t, "Simon", boxer.Artist)
	assert.Nil(t, boxer.Lines, "NULL lyrics text leaves no lines")
}

func TestPostgresAlbums(t *testing.T) {
	src := newSeededPostgres(t)

	batch, err := src.Albums(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Declared)
	assert.Equal(t, 1, batch.Skipped)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "Queen", batch.Records[0].Artist)
	assert.Equal(t, "A Night at the Opera", batch.Records[0].Name)
	assert.Equal(t, "Album", batch.Records[0].Type)
	assert.Equal(t, "1975", batch.Records[0].Year)
	assert.Equal(t, "Simon", batch.Records[1].Artist)
	assert.Empty(t, batch.Records[1].Type)
	assert.Empty(t, batch.Records[1].Year)
}
