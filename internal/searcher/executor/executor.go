// Package executor evaluates parsed query trees against one opened index.
// Each node resolves to a document-id bitmap plus a score per document;
// And intersects, Or unions, and scores add up across children.
package executor

import (
	"context"
	"log/slog"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/ranker"
)

// Index is the read side of an opened corpus index.
type Index interface {
	Corpus() document.Corpus
	TotalDocs() int
	Postings(field document.Field, term string) index.PostingList
	DocFreq(field document.Field, term string) int
}

type SearchResult struct {
	Query     string             `json:"query"`
	Corpus    string             `json:"corpus"`
	Field     document.Field     `json:"field"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
}

// Executor evaluates queries against a single index. It holds no mutable
// state and may be used from many goroutines.
type Executor struct {
	ix     Index
	logger *slog.Logger
}

func New(ix Index) *Executor {
	return &Executor{
		ix: ix,
		logger: slog.Default().With(
			"component", "query-executor",
			"corpus", ix.Corpus().String(),
		),
	}
}

// Execute evaluates q and returns at most limit ranked documents. limit <= 0
// returns every match. An empty result is not an error.
func (e *Executor) Execute(ctx context.Context, q *parser.Query, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev := evaluator{ix: e.ix, field: q.Field, totalDocs: e.ix.TotalDocs()}
	res := ev.eval(q.Root)

	termStats := make(map[string]int)
	for _, term := range q.Terms() {
		termStats[term] = e.ix.DocFreq(q.Field, term)
	}

	ranked := ranker.TopK(res.scores, limit)
	e.logger.Debug("query executed",
		"query", q.String(),
		"candidates", res.docs.GetCardinality(),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     q.String(),
		Corpus:    e.ix.Corpus().String(),
		Field:     q.Field,
		TotalHits: int(res.docs.GetCardinality()),
		Results:   ranked,
		TermStats: termStats,
	}, nil
}

type result struct {
	docs   *roaring.Bitmap
	scores map[uint32]float64
}

func emptyResult() result {
	return result{docs: roaring.New(), scores: map[uint32]float64{}}
}

type evaluator struct {
	ix        Index
	field     document.Field
	totalDocs int
}

func (ev *evaluator) eval(n parser.Node) result {
	switch v := n.(type) {
	case *parser.Term:
		return ev.term(v.Text)
	case *parser.Phrase:
		return ev.phrase(v.Terms)
	case *parser.And:
		return ev.and(v.Children)
	case *parser.Or:
		return ev.or(v.Children)
	case *parser.Group:
		return ev.eval(v.Child)
	default:
		return emptyResult()
	}
}

func (ev *evaluator) term(term string) result {
	postings := ev.ix.Postings(ev.field, term)
	res := result{docs: roaring.New(), scores: make(map[uint32]float64, len(postings))}
	df := len(postings)
	for _, p := range postings {
		res.docs.Add(p.DocID)
		res.scores[p.DocID] = ranker.TermWeight(p.Frequency, ev.totalDocs, df)
	}
	return res
}

// phrase matches documents where terms occur at consecutive positions. The
// score is the phrase frequency times the summed IDF of its terms.
func (ev *evaluator) phrase(terms []string) result {
	lists := make([]index.PostingList, len(terms))
	var candidates *roaring.Bitmap
	idf := 0.0
	for i, term := range terms {
		lists[i] = ev.ix.Postings(ev.field, term)
		if len(lists[i]) == 0 {
			return emptyResult()
		}
		idf += ranker.IDF(ev.totalDocs, len(lists[i]))
		bm := roaring.New()
		for _, p := range lists[i] {
			bm.Add(p.DocID)
		}
		if candidates == nil {
			candidates = bm
		} else {
			candidates.And(bm)
		}
	}

	res := emptyResult()
	it := candidates.Iterator()
	positions := make([][]int, len(terms))
	for it.HasNext() {
		docID := it.Next()
		for i, list := range lists {
			positions[i] = find(list, docID).Positions
		}
		if freq := phraseFreq(positions); freq > 0 {
			res.docs.Add(docID)
			res.scores[docID] = float64(freq) * idf
		}
	}
	return res
}

func (ev *evaluator) and(children []parser.Node) result {
	acc := ev.eval(children[0])
	for _, c := range children[1:] {
		if acc.docs.IsEmpty() {
			return acc
		}
		next := ev.eval(c)
		acc.docs.And(next.docs)
		scores := make(map[uint32]float64, acc.docs.GetCardinality())
		it := acc.docs.Iterator()
		for it.HasNext() {
			id := it.Next()
			scores[id] = acc.scores[id] + next.scores[id]
		}
		acc.scores = scores
	}
	return acc
}

func (ev *evaluator) or(children []parser.Node) result {
	acc := emptyResult()
	for _, c := range children {
		next := ev.eval(c)
		acc.docs.Or(next.docs)
		for id, s := range next.scores {
			acc.scores[id] += s
		}
	}
	return acc
}

// find returns the posting of docID in a list sorted by DocID.
func find(list index.PostingList, docID uint32) index.Posting {
	i := sort.Search(len(list), func(i int) bool { return list[i].DocID >= docID })
	if i < len(list) && list[i].DocID == docID {
		return list[i]
	}
	return index.Posting{}
}

// phraseFreq counts start positions p such that positions[i] contains p+i
// for every i. Each positions slice is ascending.
func phraseFreq(positions [][]int) int {
	n := 0
	for _, start := range positions[0] {
		match := true
		for i := 1; i < len(positions); i++ {
			if !containsSorted(positions[i], start+i) {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

func containsSorted(s []int, v int) bool {
	i := sort.SearchInts(s, v)
	return i < len(s) && s[i] == v
}
