package executor

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/ranker"
)

type memIndex struct {
	*index.MemoryIndex
}

func (memIndex) Corpus() document.Corpus { return document.CorpusSongs }

func (m memIndex) TotalDocs() int { return m.DocCount() }

func newExecutor(t *testing.T, lyrics ...string) *Executor {
	t.Helper()
	m := index.NewMemoryIndex()
	for i, text := range lyrics {
		require.NoError(t, m.AddDocument(uint32(i), document.Stored{document.FieldLyricsText: text}))
	}
	return New(memIndex{m})
}

func run(t *testing.T, e *Executor, query string, limit int) *SearchResult {
	t.Helper()
	q, err := parser.Parse(query, document.FieldLyricsText)
	require.NoError(t, err)
	res, err := e.Execute(context.Background(), q, limit)
	require.NoError(t, err)
	return res
}

func ids(res *SearchResult) []uint32 {
	out := make([]uint32, 0, len(res.Results))
	for _, r := range res.Results {
		out = append(out, r.DocID)
	}
	return out
}

func TestLoveHateScenario(t *testing.T) {
	e := newExecutor(t, "love is love", "hate is hate")
	res := run(t, e, "love", 5)

	assert.Equal(t, []uint32{0}, ids(res))
	assert.Equal(t, 1, res.TotalHits)
	assert.InDelta(t, 2*math.Log(2), res.Results[0].Score, 1e-9)
	assert.Equal(t, map[string]int{"love": 1}, res.TermStats)
	assert.Equal(t, "songs", res.Corpus)
}

func TestZeroMatchesIsNotAnError(t *testing.T) {
	e := newExecutor(t, "love is love")
	res := run(t, e, "nothing", 5)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)
}

func TestTermInEveryDocumentStillMatches(t *testing.T) {
	e := newExecutor(t, "love is love", "hate is hate")
	res := run(t, e, "is", 5)
	assert.Equal(t, []uint32{0, 1}, ids(res))
	assert.Zero(t, res.Results[0].Score)
}

var corpus = []string{
	"love is love",
	"hate is hate",
	"love and hate",
	"hate and love and love",
	"is this the real life",
	"is this just fantasy",
	"caught in a landslide no escape from reality",
	"real love real life",
}

func TestAndIsSubsetOfOr(t *testing.T) {
	e := newExecutor(t, corpus...)
	operands := []string{"love", "hate", "is", `"real life"`, "(love OR fantasy)", "this", "missing"}
	for _, a := range operands {
		for _, b := range operands {
			and := run(t, e, a+" AND "+b, 0)
			or := run(t, e, a+" OR "+b, 0)
			orSet := make(map[uint32]bool)
			for _, id := range ids(or) {
				orSet[id] = true
			}
			for _, id := range ids(and) {
				assert.True(t, orSet[id], "%s AND %s returned %d not in OR", a, b, id)
			}
			assert.LessOrEqual(t, and.TotalHits, or.TotalHits)
		}
	}
}

func TestAndIntersects(t *testing.T) {
	e := newExecutor(t, corpus...)
	assert.Equal(t, []uint32{3, 2}, ids(run(t, e, "love AND hate", 0)))
	assert.ElementsMatch(t, []uint32{0, 1, 2, 3, 7}, ids(run(t, e, "love OR hate", 0)))
}

func TestPhraseExactness(t *testing.T) {
	e := newExecutor(t,
		"x y",
		"y x",
		"x z y",
		"a x y b x y",
		"unrelated words",
		"more filler",
	)
	res := run(t, e, `"x y"`, 0)
	assert.ElementsMatch(t, []uint32{0, 3}, ids(res))
	// doc 3 holds the phrase twice
	assert.Equal(t, uint32(3), res.Results[0].DocID)

	assert.Empty(t, run(t, e, `"y z"`, 0).Results)
	assert.Empty(t, run(t, e, `"x missing"`, 0).Results)
}

func TestPhraseFromHyphenatedWord(t *testing.T) {
	e := newExecutor(t, "rock n roll forever", "roll rock n")
	assert.Equal(t, []uint32{0}, ids(run(t, e, "rock-n-roll", 0)))
}

func TestRoundTripEveryTerm(t *testing.T) {
	e := newExecutor(t, corpus...)
	for i, text := range corpus {
		for _, term := range tokenizer.Terms(text) {
			res := run(t, e, term, 0)
			assert.Contains(t, ids(res), uint32(i), "term %q", term)
		}
	}
}

func TestRankingMonotonicInTermFrequency(t *testing.T) {
	score := func(reps int) float64 {
		text := "filler"
		for i := 0; i < reps; i++ {
			text += " love"
		}
		e := newExecutor(t, text, "other words", "more words")
		res := run(t, e, "love OR words", 0)
		for _, r := range res.Results {
			if r.DocID == 0 {
				return r.Score
			}
		}
		t.Fatalf("doc 0 missing for reps=%d", reps)
		return 0
	}
	prev := score(1)
	for reps := 2; reps < 8; reps++ {
		cur := score(reps)
		assert.GreaterOrEqual(t, cur, prev, "reps=%d", reps)
		prev = cur
	}
}

func TestDeterministicOrderingAndTies(t *testing.T) {
	docs := make([]string, 20)
	for i := range docs {
		docs[i] = fmt.Sprintf("shared token %d", i)
	}
	e := newExecutor(t, docs...)
	first := run(t, e, "shared", 5)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, ids(first))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Results, run(t, e, "shared", 5).Results)
	}
}

func TestLimitBoundsResults(t *testing.T) {
	e := newExecutor(t, corpus...)
	res := run(t, e, "love OR hate OR is", 2)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, 7, res.TotalHits)
	assert.True(t, ranker.Before(res.Results[0], res.Results[1]))
}

func TestExecuteCanceledContext(t *testing.T) {
	e := newExecutor(t, corpus...)
	q, err := parser.Parse("love", document.FieldLyricsText)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, q, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFieldScoping(t *testing.T) {
	m := index.NewMemoryIndex()
	require.NoError(t, m.AddDocument(0, document.Stored{
		document.FieldSongName:   "Love Song",
		document.FieldLyricsText: "nothing here",
	}))
	e := New(memIndex{m})
	q, err := parser.Parse("love", document.FieldLyricsText)
	require.NoError(t, err)
	res, err := e.Execute(context.Background(), q, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	q, err = parser.Parse("love", document.FieldSongName)
	require.NoError(t, err)
	res, err = e.Execute(context.Background(), q, 5)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}
