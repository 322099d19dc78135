// Package document turns linked records into flat field-to-text documents.
// Two closed document variants exist, one per corpus, each with a fixed
// field set.
package document

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/linker"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

// Corpus identifies one of the two independent indexes.
type Corpus uint8

const (
	CorpusSongs Corpus = iota + 1
	CorpusAlbums
)

func (c Corpus) String() string {
	switch c {
	case CorpusSongs:
		return "songs"
	case CorpusAlbums:
		return "albums"
	default:
		return fmt.Sprintf("corpus(%d)", uint8(c))
	}
}

// Corpora lists every corpus in build order.
var Corpora = []Corpus{CorpusSongs, CorpusAlbums}

// ParseCorpus accepts "songs"/"lyrics" and "albums".
func ParseCorpus(s string) (Corpus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "songs", "song", "lyrics":
		return CorpusSongs, nil
	case "albums", "album":
		return CorpusAlbums, nil
	default:
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownCorpus, s)
	}
}

// Field names a searchable document attribute.
type Field string

const (
	FieldSongName   Field = "songName"
	FieldSingerName Field = "singerName"
	FieldLyricsText Field = "lyricsText"
	FieldAlbumName  Field = "albumName"
	FieldAlbumType  Field = "albumType"
	FieldAlbumYear  Field = "albumYear"
)

var corpusFields = map[Corpus][]Field{
	CorpusSongs:  {FieldSongName, FieldSingerName, FieldLyricsText},
	CorpusAlbums: {FieldSingerName, FieldAlbumName, FieldAlbumType, FieldAlbumYear},
}

// Fields returns the fixed field set of c in a stable order.
func (c Corpus) Fields() []Field {
	return append([]Field(nil), corpusFields[c]...)
}

// HasField reports whether f belongs to c.
func (c Corpus) HasField(f Field) bool {
	for _, cf := range corpusFields[c] {
		if cf == f {
			return true
		}
	}
	return false
}

// ParseField resolves name against the field set of c.
func ParseField(c Corpus, name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	if !c.HasField(f) {
		return "", fmt.Errorf("%w: %q is not a field of the %s corpus", apperrors.ErrUnknownField, name, c)
	}
	return f, nil
}

// Stored is the verbatim field values of one document as persisted in the
// document table.
type Stored map[Field]string

// Document is implemented only by SongLyrics and Album.
type Document interface {
	Corpus() Corpus
	Stored() Stored
	sealed()
}

// SongLyrics is a song document joined with its lyrics.
type SongLyrics struct {
	SongName   string
	SingerName string
	LyricsText string
}

func (SongLyrics) Corpus() Corpus { return CorpusSongs }

func (d SongLyrics) Stored() Stored {
	return Stored{
		FieldSongName:   d.SongName,
		FieldSingerName: d.SingerName,
		FieldLyricsText: d.LyricsText,
	}
}

func (SongLyrics) sealed() {}

// Album is an album document.
type Album struct {
	SingerName string
	AlbumName  string
	AlbumType  string
	AlbumYear  string
}

func (Album) Corpus() Corpus { return CorpusAlbums }

func (d Album) Stored() Stored {
	return Stored{
		FieldSingerName: d.SingerName,
		FieldAlbumName:  d.AlbumName,
		FieldAlbumType:  d.AlbumType,
		FieldAlbumYear:  d.AlbumYear,
	}
}

func (Album) sealed() {}

// LineSeparator joins lyrics lines into the lyricsText field.
const LineSeparator = "\n"

// FromPair builds the song document for a linked pair. index is the record's
// position in its batch and only appears in errors.
func FromPair(index int, p linker.Pair) (SongLyrics, error) {
	switch {
	case strings.TrimSpace(p.Song.Title) == "":
		return SongLyrics{}, malformed("song", index, "missing song title")
	case strings.TrimSpace(p.Song.Artist) == "":
		return SongLyrics{}, malformed("song", index, "missing artist name")
	case p.Lyrics.Lines == nil:
		return SongLyrics{}, malformed("song", index, "missing lyrics")
	}
	return SongLyrics{
		SongName:   p.Song.Title,
		SingerName: p.Song.Artist,
		LyricsText: strings.Join(p.Lyrics.Lines, LineSeparator),
	}, nil
}

// FromAlbum builds the album document for a. Type and year may be empty.
func FromAlbum(index int, a catalog.Album) (Album, error) {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return Album{}, malformed("album", index, "missing album name")
	case strings.TrimSpace(a.Artist) == "":
		return Album{}, malformed("album", index, "missing artist name")
	}
	return Album{
		SingerName: a.Artist,
		AlbumName:  a.Name,
		AlbumType:  a.Type,
		AlbumYear:  a.Year,
	}, nil
}

func malformed(kind string, index int, reason string) error {
	return &apperrors.MalformedRecordError{Kind: kind, Index: index, Reason: reason}
}
