package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

type fakeService struct {
	lastField string
	lastLimit int
	docs      map[uint32]document.Stored
	err       error
}

func (f *fakeService) Search(_ context.Context, query, field, corpus string, topK int) (*executor.SearchResult, error) {
	f.lastField, f.lastLimit = field, topK
	if f.err != nil {
		return nil, f.err
	}
	return &executor.SearchResult{
		Query:     "lyricsText:" + query,
		Corpus:    corpus,
		Field:     document.Field(field),
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: 0, Score: 1.5}},
		TermStats: map[string]int{query: 1},
	}, nil
}

func (f *fakeService) GetDocument(docID uint32, _ string) (document.Stored, error) {
	d, ok := f.docs[docID]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return d, nil
}

func (f *fakeService) Info(corpus string) (searcher.CorpusInfo, error) {
	if corpus != "songs" {
		return searcher.CorpusInfo{}, apperrors.ErrUnknownCorpus
	}
	return searcher.CorpusInfo{Corpus: corpus, Documents: 1}, nil
}

func (f *fakeService) CacheStats() (int64, int64, bool) { return 3, 1, true }

func (f *fakeService) InvalidateCache(context.Context) (int64, error) { return 7, nil }

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, artist, title string) (string, error) {
	if artist == "nobody" {
		return "", apperrors.ErrLyricsNotFound
	}
	return "la la\nla", nil
}

func newServer(svc *fakeService) *http.ServeMux {
	mux := http.NewServeMux()
	New(svc, fakeFetcher{}, 10).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestSearchReturnsStoredFields(t *testing.T) {
	svc := &fakeService{docs: map[uint32]document.Stored{0: {document.FieldSongName: "Love Song"}}}
	rec, body := do(t, newServer(svc), http.MethodGet, "/api/v1/search?q=love")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lyricsText", svc.lastField)
	assert.Equal(t, 10, svc.lastLimit)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	fields := results[0].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "Love Song", fields["songName"])
}

func TestSearchDefaultFieldForAlbums(t *testing.T) {
	svc := &fakeService{docs: map[uint32]document.Stored{0: {}}}
	rec, _ := do(t, newServer(svc), http.MethodGet, "/api/v1/search?q=opera&corpus=albums&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "albumName", svc.lastField)
	assert.Equal(t, 3, svc.lastLimit)
}

func TestSearchValidation(t *testing.T) {
	mux := newServer(&fakeService{})

	rec, _ := do(t, mux, http.MethodGet, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/search?q=love&limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchSyntaxError(t *testing.T) {
	svc := &fakeService{err: &apperrors.QuerySyntaxError{Query: "(love", Pos: 5, Reason: "unbalanced parenthesis: missing )"}}
	rec, body := do(t, newServer(svc), http.MethodGet, "/api/v1/search?q=(love")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unbalanced parenthesis: missing )", body["error"])
	assert.EqualValues(t, 5, body["position"])
}

func TestSearchIndexFailureHidesDetail(t *testing.T) {
	svc := &fakeService{err: apperrors.NewIndexIOError("read", "/data/songs", assert.AnError)}
	rec, body := do(t, newServer(svc), http.MethodGet, "/api/v1/search?q=love")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), body["error"])
}

func TestDocument(t *testing.T) {
	svc := &fakeService{docs: map[uint32]document.Stored{4: {document.FieldAlbumName: "Jazz"}}}
	mux := newServer(svc)

	rec, body := do(t, mux, http.MethodGet, "/api/v1/corpora/albums/documents/4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jazz", body["fields"].(map[string]any)["albumName"])

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/corpora/albums/documents/9")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/corpora/albums/documents/-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorpusInfo(t *testing.T) {
	mux := newServer(&fakeService{})

	rec, body := do(t, mux, http.MethodGet, "/api/v1/corpora/songs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["documents"])

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/corpora/podcasts")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLyrics(t *testing.T) {
	mux := newServer(&fakeService{})

	rec, body := do(t, mux, http.MethodGet, "/api/v1/lyrics?artist=adele&title=hello")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "la la\nla", body["lyrics"])

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/lyrics?artist=nobody&title=x")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/lyrics?artist=adele")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLyricsDisabled(t *testing.T) {
	mux := http.NewServeMux()
	New(&fakeService{}, nil, 10).Register(mux)
	rec, _ := do(t, mux, http.MethodGet, "/api/v1/lyrics?artist=a&title=b")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheRoutes(t *testing.T) {
	mux := newServer(&fakeService{})

	rec, body := do(t, mux, http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "75.0%", body["hit_rate"])

	rec, body = do(t, mux, http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, body["keys_deleted"])
}

func TestLyricsMiddlewareWrapsOnlyLyrics(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
		})
	}
	mux := http.NewServeMux()
	New(&fakeService{}, fakeFetcher{}, 10).Register(mux, deny)

	rec, _ := do(t, mux, http.MethodGet, "/api/v1/lyrics?artist=a&title=b")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/cache/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
}
