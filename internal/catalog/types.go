// Package catalog defines the typed source records (songs, lyrics, albums)
// and the name normalization applied to them before linkage and indexing.
package catalog

// Song is one row of the song listing.
type Song struct {
	Artist string `json:"artist_name"`
	Title  string `json:"song_title"`
	Href   string `json:"source_href"`
}

// Lyrics is one row of the lyrics dump; Lines keeps the original line order.
type Lyrics struct {
	Artist string   `json:"artist_name"`
	Title  string   `json:"song_title"`
	Href   string   `json:"source_href"`
	Lines  []string `json:"lyrics_lines"`
}

// Album is one row of the album listing. Year is kept verbatim as text.
type Album struct {
	Artist string `json:"artist_name"`
	Name   string `json:"album_name"`
	Type   string `json:"album_type"`
	Year   string `json:"release_year"`
}

// Key is the linkage key between a song and its lyrics.
type Key struct {
	Title  string
	Artist string
}

// SongKey returns the normalized linkage key for s.
func SongKey(s Song) Key {
	return Key{Title: NormalizeTitle(s.Title), Artist: NormalizeArtist(s.Artist)}
}

// LyricsKey returns the normalized linkage key for l.
func LyricsKey(l Lyrics) Key {
	return Key{Title: NormalizeTitle(l.Title), Artist: NormalizeArtist(l.Artist)}
}

// Normalized returns a copy of s with artist and title normalized.
func (s Song) Normalized() Song {
	s.Artist = NormalizeArtist(s.Artist)
	s.Title = NormalizeTitle(s.Title)
	return s
}

// Normalized returns a copy of l with artist and title normalized.
func (l Lyrics) Normalized() Lyrics {
	l.Artist = NormalizeArtist(l.Artist)
	l.Title = NormalizeTitle(l.Title)
	return l
}

// Normalized returns a copy of a with the artist normalized and the other
// attributes trimmed.
func (a Album) Normalized() Album {
	a.Artist = NormalizeArtist(a.Artist)
	a.Name = trimSpace(a.Name)
	a.Type = trimSpace(a.Type)
	a.Year = trimSpace(a.Year)
	return a
}

// Batch is a full record set as delivered by a record source. Declared is the
// record count the source reported before reading; Skipped counts rows that
// could not be turned into a record.
type Batch[T any] struct {
	Declared int
	Records  []T
	Skipped  int
}
