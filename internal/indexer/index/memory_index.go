// Package index holds the in-memory inverted index keyed by field then term.
// A MemoryIndex is filled by a single builder and is read-only afterwards;
// readers never mutate it, so concurrent lookups need no locking.
package index

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/tokenizer"
)

type MemoryIndex struct {
	fields   map[document.Field]map[string]PostingList
	docCount int
	lastDoc  uint32
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		fields: make(map[document.Field]map[string]PostingList),
	}
}

// AddDocument tokenizes every field of stored and appends one posting per
// distinct (field, term). Document ids must be strictly increasing so every
// postings list stays sorted.
func (m *MemoryIndex) AddDocument(docID uint32, stored document.Stored) error {
	if m.docCount > 0 && docID <= m.lastDoc {
		return fmt.Errorf("document id %d is not greater than previous id %d", docID, m.lastDoc)
	}
	for field, text := range stored {
		m.addField(docID, field, text)
	}
	m.lastDoc = docID
	m.docCount++
	return nil
}

func (m *MemoryIndex) addField(docID uint32, field document.Field, text string) {
	tokens := tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return
	}
	termData := make(map[string]*Posting)
	order := make([]string, 0, len(tokens))
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{DocID: docID, Positions: make([]int, 0, 4)}
			termData[token.Term] = p
			order = append(order, token.Term)
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	terms, ok := m.fields[field]
	if !ok {
		terms = make(map[string]PostingList)
		m.fields[field] = terms
	}
	for _, term := range order {
		posting := termData[term]
		terms[term] = append(terms[term], *posting)
		m.size += int64(len(term) + len(posting.Positions)*8 + 32)
	}
}

// Postings returns the postings of term in field, or nil.
func (m *MemoryIndex) Postings(field document.Field, term string) PostingList {
	return m.fields[field][term]
}

// DocFreq is the number of distinct documents containing term in field.
func (m *MemoryIndex) DocFreq(field document.Field, term string) int {
	return len(m.fields[field][term])
}

// Snapshot returns every (field, term) entry ordered by field then term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, m.Terms())
	for field, terms := range m.fields {
		for term, postings := range terms {
			entries = append(entries, TermEntry{Field: field, Term: term, Postings: postings})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Load rebuilds an index from entries previously produced by Snapshot.
func Load(entries []TermEntry, docCount int) *MemoryIndex {
	m := NewMemoryIndex()
	for _, e := range entries {
		terms, ok := m.fields[e.Field]
		if !ok {
			terms = make(map[string]PostingList)
			m.fields[e.Field] = terms
		}
		terms[e.Term] = e.Postings
		for _, p := range e.Postings {
			m.size += int64(len(e.Term) + len(p.Positions)*8 + 32)
		}
	}
	m.docCount = docCount
	return m
}

// Terms is the number of distinct (field, term) pairs.
func (m *MemoryIndex) Terms() int {
	n := 0
	for _, terms := range m.fields {
		n += len(terms)
	}
	return n
}

// Size is an estimate of the postings footprint in bytes.
func (m *MemoryIndex) Size() int64 {
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	return m.docCount
}
