package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
)

func TestLinkMatchesNormalizedKeys(t *testing.T) {
	songs := []catalog.Song{
		{Artist: "Queen Lyrics", Title: "Bohemian Rhapsody (Live)", Href: "/q"},
		{Artist: "Nobody", Title: "Missing", Href: "/n"},
		{Artist: "Simon & Garfunkel", Title: "The Boxer", Href: "/s"},
	}
	lyrics := []catalog.Lyrics{
		{Artist: "Simon, Garfunkel", Title: "The Boxer", Lines: []string{"lie la lie"}},
		{Artist: "Queen", Title: "Bohemian Rhapsody", Lines: []string{"is this the real life"}},
	}

	res := Link(songs, lyrics)
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, 1, res.Unmatched)
	assert.Equal(t, "/q", res.Pairs[0].Song.Href)
	assert.Equal(t, []string{"is this the real life"}, res.Pairs[0].Lyrics.Lines)
	assert.Equal(t, "/s", res.Pairs[1].Song.Href)
}

func TestLinkFirstLyricsWins(t *testing.T) {
	songs := []catalog.Song{{Artist: "A", Title: "T"}}
	lyrics := []catalog.Lyrics{
		{Artist: "A", Title: "T", Lines: []string{"first"}},
		{Artist: "A (feat. B)", Title: "T", Lines: []string{"second"}},
	}

	res := Link(songs, lyrics)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, []string{"first"}, res.Pairs[0].Lyrics.Lines)
	assert.Equal(t, 1, res.DuplicateLyrics)
}

func TestLinkRepeatedSongKey(t *testing.T) {
	songs := []catalog.Song{
		{Artist: "Queen", Title: "Love of My Life", Href: "/studio"},
		{Artist: "Queen Lyrics", Title: "Love of My Life (Live)", Href: "/live"},
	}
	lyrics := []catalog.Lyrics{{Artist: "Queen", Title: "Love of My Life", Lines: []string{"you've hurt me"}}}

	res := Link(songs, lyrics)
	require.Len(t, res.Pairs, 2)
	assert.Zero(t, res.Unmatched)
	assert.Equal(t, "/studio", res.Pairs[0].Song.Href)
	assert.Equal(t, "/live", res.Pairs[1].Song.Href)
	assert.Equal(t, res.Pairs[0].Lyrics, res.Pairs[1].Lyrics)
}

func TestLinkIsCaseSensitive(t *testing.T) {
	res := Link(
		[]catalog.Song{{Artist: "queen", Title: "bohemian rhapsody"}},
		[]catalog.Lyrics{{Artist: "Queen", Title: "Bohemian Rhapsody"}},
	)
	assert.Empty(t, res.Pairs)
	assert.Equal(t, 1, res.Unmatched)
}

func TestLinkEmpty(t *testing.T) {
	res := Link(nil, nil)
	assert.Empty(t, res.Pairs)
	assert.Zero(t, res.Unmatched)
}
