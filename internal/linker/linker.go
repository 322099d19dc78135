// Package linker pairs song records with their lyrics by normalized
// (title, artist) key.
package linker

import (
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
)

// Pair is a song together with its matched lyrics.
type Pair struct {
	Song   catalog.Song
	Lyrics catalog.Lyrics
}

// Result is the outcome of one linkage pass. Unmatched songs are expected in
// steady state and are reported only as a count.
type Result struct {
	Pairs           []Pair
	Unmatched       int
	DuplicateLyrics int
}

// Link returns, in song order, every song that has a lyrics record with an
// equal normalized key. When several lyrics records share a key the first one
// wins. A repeated song key is paired again with the same lyrics record.
func Link(songs []catalog.Song, lyrics []catalog.Lyrics) Result {
	byKey := make(map[catalog.Key]int, len(lyrics))
	var res Result
	for i, l := range lyrics {
		k := catalog.LyricsKey(l)
		if _, ok := byKey[k]; ok {
			res.DuplicateLyrics++
			continue
		}
		byKey[k] = i
	}

	res.Pairs = make([]Pair, 0, min(len(songs), len(byKey)))
	for _, s := range songs {
		i, ok := byKey[catalog.SongKey(s)]
		if !ok {
			res.Unmatched++
			continue
		}
		res.Pairs = append(res.Pairs, Pair{Song: s, Lyrics: lyrics[i]})
	}
	return res
}
