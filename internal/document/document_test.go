package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/linker"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

func TestFromPair(t *testing.T) {
	doc, err := FromPair(0, linker.Pair{
		Song:   catalog.Song{Artist: "Queen", Title: "Bohemian Rhapsody"},
		Lyrics: catalog.Lyrics{Lines: []string{"Is this the real life", "Is this just fantasy"}},
	})
	require.NoError(t, err)
	assert.Equal(t, CorpusSongs, doc.Corpus())
	assert.Equal(t, Stored{
		FieldSongName:   "Bohemian Rhapsody",
		FieldSingerName: "Queen",
		FieldLyricsText: "Is this the real life\nIs this just fantasy",
	}, doc.Stored())
}

func TestFromPairMalformed(t *testing.T) {
	tests := []struct {
		name string
		pair linker.Pair
	}{
		{"no title", linker.Pair{Song: catalog.Song{Artist: "A"}, Lyrics: catalog.Lyrics{Lines: []string{"x"}}}},
		{"no artist", linker.Pair{Song: catalog.Song{Title: "T"}, Lyrics: catalog.Lyrics{Lines: []string{"x"}}}},
		{"no lyrics", linker.Pair{Song: catalog.Song{Artist: "A", Title: "T"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPair(7, tt.pair)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedRecord))
			var mre *apperrors.MalformedRecordError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, 7, mre.Index)
		})
	}
}

func TestFromAlbum(t *testing.T) {
	doc, err := FromAlbum(0, catalog.Album{Artist: "Queen", Name: "Jazz", Year: "1978"})
	require.NoError(t, err)
	assert.Equal(t, CorpusAlbums, doc.Corpus())
	assert.Equal(t, "", doc.Stored()[FieldAlbumType])

	_, err = FromAlbum(1, catalog.Album{Artist: "Queen"})
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
}

func TestCorpusFields(t *testing.T) {
	assert.True(t, CorpusSongs.HasField(FieldLyricsText))
	assert.False(t, CorpusSongs.HasField(FieldAlbumYear))
	assert.True(t, CorpusAlbums.HasField(FieldSingerName))

	f, err := ParseField(CorpusAlbums, "albumYear")
	require.NoError(t, err)
	assert.Equal(t, FieldAlbumYear, f)

	_, err = ParseField(CorpusAlbums, "lyricsText")
	assert.ErrorIs(t, err, apperrors.ErrUnknownField)
}

func TestParseCorpus(t *testing.T) {
	c, err := ParseCorpus(" Songs ")
	require.NoError(t, err)
	assert.Equal(t, CorpusSongs, c)
	assert.Equal(t, "albums", CorpusAlbums.String())

	_, err = ParseCorpus("podcasts")
	assert.ErrorIs(t, err, apperrors.ErrUnknownCorpus)
}
