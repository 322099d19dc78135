package segment

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/index"
)

// ErrCorrupt is returned for a segment whose framing or checksum is invalid.
var ErrCorrupt = errors.New("corrupt segment")

// Reader holds a fully loaded, verified segment.
type Reader struct {
	path   string
	header Header
	dict   []DictEntry
	data   []byte
}

// OpenReader reads the whole segment at path and verifies its magic, version,
// region bounds and checksum.
func OpenReader(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segment file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than header and footer", ErrCorrupt, len(data))
	}
	header := decodeHeader(data[:HeaderSize])
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", ErrCorrupt, header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, header.Version)
	}
	bodyEnd := header.DictOffset + header.DictSize
	if header.PostOffset != int64(HeaderSize) ||
		header.DictOffset != header.PostOffset+header.PostSize ||
		bodyEnd+int64(FooterSize) != int64(len(data)) {
		return nil, fmt.Errorf("%w: region offsets do not match file size", ErrCorrupt)
	}
	footer := data[bodyEnd:]
	want := binary.LittleEndian.Uint32(footer[0:4])
	if got := crc32.ChecksumIEEE(data[header.PostOffset:bodyEnd]); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch (got %08x, want %08x)", ErrCorrupt, got, want)
	}

	var dict []DictEntry
	if err := json.Unmarshal(data[header.DictOffset:bodyEnd], &dict); err != nil {
		return nil, fmt.Errorf("%w: parsing dictionary: %v", ErrCorrupt, err)
	}
	if len(dict) != int(header.TermCount) {
		return nil, fmt.Errorf("%w: dictionary has %d terms, header says %d", ErrCorrupt, len(dict), header.TermCount)
	}
	return &Reader{path: path, header: header, dict: dict, data: data}, nil
}

// Search returns the postings of term in field, or nil when absent.
func (r *Reader) Search(field document.Field, term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		if r.dict[i].Field != field {
			return r.dict[i].Field >= field
		}
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Field != field || r.dict[i].Term != term {
		return nil, nil
	}
	return r.postings(r.dict[i])
}

// ReadAll decodes every entry in dictionary order.
func (r *Reader) ReadAll() ([]index.TermEntry, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		postings, err := r.postings(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Field: d.Field, Term: d.Term, Postings: postings})
	}
	return entries, nil
}

func (r *Reader) postings(d DictEntry) (index.PostingList, error) {
	start := r.header.PostOffset + d.PostOffset
	end := start + int64(d.PostLen)
	if d.PostOffset < 0 || d.PostLen < 0 || end > r.header.DictOffset {
		return nil, fmt.Errorf("%w: postings for %s:%q out of range", ErrCorrupt, d.Field, d.Term)
	}
	var postings index.PostingList
	if err := json.Unmarshal(r.data[start:end], &postings); err != nil {
		return nil, fmt.Errorf("%w: parsing postings for %s:%q: %v", ErrCorrupt, d.Field, d.Term, err)
	}
	return postings, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Header() Header {
	return r.header
}
