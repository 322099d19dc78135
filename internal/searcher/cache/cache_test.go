package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/ranker"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Query:     "lyricsText:love",
		Corpus:    "songs",
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: 0, Score: 1.5}},
		TermStats: map[string]int{"love": 1},
	}
}

func TestBuildKeyDistinguishesInputs(t *testing.T) {
	base := Key{Corpus: "songs", BuildID: "b1", Query: "lyricsText:love", Limit: 10}
	assert.Equal(t, buildKey(base), buildKey(base))

	variants := []Key{
		{Corpus: "albums", BuildID: "b1", Query: "lyricsText:love", Limit: 10},
		{Corpus: "songs", BuildID: "b2", Query: "lyricsText:love", Limit: 10},
		{Corpus: "songs", BuildID: "b1", Query: "songName:love", Limit: 10},
		{Corpus: "songs", BuildID: "b1", Query: "lyricsText:love", Limit: 5},
	}
	for _, v := range variants {
		assert.NotEqual(t, buildKey(base), buildKey(v), "%+v", v)
	}
	assert.Contains(t, buildKey(base), keyPrefix+"songs:")
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	k := Key{Corpus: "songs", BuildID: "b1", Query: "lyricsText:love", Limit: 10}

	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return sampleResult(), nil
	}

	res, hit, err := c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, res.TotalHits)

	res, hit, err = c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResult(), res)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	k := Key{Corpus: "songs", Query: "lyricsText:love", Limit: 10}

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sampleResult(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), k, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestComputeErrorIsReturned(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), Key{Query: "q"}, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestStoreFailureDegradesToMiss(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	c := New(store, time.Minute)
	res, ok := c.Get(context.Background(), Key{Query: "q"})
	assert.False(t, ok)
	assert.Nil(t, res)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute)
	c.Set(context.Background(), Key{Corpus: "songs", Query: "a"}, sampleResult())
	c.Set(context.Background(), Key{Corpus: "albums", Query: "b"}, sampleResult())
	store.data["unrelated"] = []byte("x")

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, store.data, "unrelated")
}
