// Package ranker implements TF-IDF term weighting and deterministic top-K
// selection. Results are ordered by descending score with ties broken by
// ascending document id.
package ranker

import (
	"container/heap"
	"math"
)

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// IDF is log(totalDocs / docFreq), or 0 when the term occurs nowhere.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs <= 0 || docFreq <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// TermWeight is tf × IDF(totalDocs, docFreq).
func TermWeight(tf, totalDocs, docFreq int) float64 {
	return float64(tf) * IDF(totalDocs, docFreq)
}

// Before reports whether a ranks ahead of b.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// TopK returns the min(k, len(scores)) best documents in rank order. k <= 0
// returns every document.
func TopK(scores map[uint32]float64, k int) []ScoredDoc {
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	if k == 0 {
		return []ScoredDoc{}
	}
	h := make(scoredDocHeap, 0, k+1)
	for docID, score := range scores {
		doc := ScoredDoc{DocID: docID, Score: score}
		if h.Len() < k {
			heap.Push(&h, doc)
			continue
		}
		if Before(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap on rank: the root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Before(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
