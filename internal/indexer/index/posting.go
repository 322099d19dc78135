package index

import "github.com/Adithya-Monish-Kumar-K/music-search/internal/document"

// Posting records one document's occurrences of a term in one field.
// Positions are token ordinals within the field text.
type Posting struct {
	DocID     uint32 `json:"d"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p"`
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// TermEntry is the full postings list of one (field, term) pair.
type TermEntry struct {
	Field    document.Field
	Term     string
	Postings PostingList
}
