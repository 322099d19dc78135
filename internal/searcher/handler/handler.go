// Package handler exposes the search service over HTTP/JSON.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/lyrics"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/logger"
)

// SearchService is implemented by *searcher.Service.
type SearchService interface {
	Search(ctx context.Context, query, field, corpus string, topK int) (*executor.SearchResult, error)
	GetDocument(docID uint32, corpus string) (document.Stored, error)
	Info(corpus string) (searcher.CorpusInfo, error)
	CacheStats() (hits, misses int64, ok bool)
	InvalidateCache(ctx context.Context) (int64, error)
}

type Handler struct {
	service      SearchService
	fetcher      lyrics.Fetcher
	defaultLimit int
	defaultField map[document.Corpus]document.Field
	logger       *slog.Logger
}

// New returns a Handler. fetcher may be nil, which disables the lyrics route.
func New(service SearchService, fetcher lyrics.Fetcher, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Handler{
		service:      service,
		fetcher:      fetcher,
		defaultLimit: defaultLimit,
		defaultField: map[document.Corpus]document.Field{
			document.CorpusSongs:  document.FieldLyricsText,
			document.CorpusAlbums: document.FieldAlbumName,
		},
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux. lyricsMiddleware wraps the lyrics
// route only, since it proxies to a remote site.
func (h *Handler) Register(mux *http.ServeMux, lyricsMiddleware ...func(http.Handler) http.Handler) {
	var lyricsRoute http.Handler = http.HandlerFunc(h.Lyrics)
	for _, mw := range lyricsMiddleware {
		lyricsRoute = mw(lyricsRoute)
	}

	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/corpora/{corpus}", h.Corpus)
	mux.HandleFunc("GET /api/v1/corpora/{corpus}/documents/{id}", h.Document)
	mux.Handle("GET /api/v1/lyrics", lyricsRoute)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type Hit struct {
	DocID  uint32          `json:"doc_id"`
	Score  float64         `json:"score"`
	Fields document.Stored `json:"fields,omitempty"`
}

type SearchResponse struct {
	Query     string         `json:"query"`
	Corpus    string         `json:"corpus"`
	Field     document.Field `json:"field"`
	TotalHits int            `json:"total_hits"`
	Results   []Hit          `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	corpusName := params.Get("corpus")
	if corpusName == "" {
		corpusName = document.CorpusSongs.String()
	}
	field := params.Get("field")
	if field == "" {
		if c, err := document.ParseCorpus(corpusName); err == nil {
			field = string(h.defaultField[c])
		}
	}

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	result, err := h.service.Search(r.Context(), query, field, corpusName, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := SearchResponse{
		Query:     result.Query,
		Corpus:    result.Corpus,
		Field:     result.Field,
		TotalHits: result.TotalHits,
		Results:   make([]Hit, 0, len(result.Results)),
		TermStats: result.TermStats,
	}
	withFields := params.Get("fields") != "false"
	for _, sd := range result.Results {
		hit := Hit{DocID: sd.DocID, Score: sd.Score}
		if withFields {
			stored, err := h.service.GetDocument(sd.DocID, result.Corpus)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			hit.Fields = stored
		}
		resp.Results = append(resp.Results, hit)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Corpus(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.PathValue("corpus"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document id must be a non-negative integer"))
		return
	}
	corpus := r.PathValue("corpus")
	stored, err := h.service.GetDocument(uint32(id), corpus)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpus": corpus,
		"doc_id": id,
		"fields": stored,
	})
}

func (h *Handler) Lyrics(w http.ResponseWriter, r *http.Request) {
	if h.fetcher == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "lyrics fetching is disabled"))
		return
	}
	artist, title := r.URL.Query().Get("artist"), r.URL.Query().Get("title")
	if artist == "" || title == "" {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameters 'artist' and 'title' are required"))
		return
	}
	text, err := h.fetcher.Fetch(r.Context(), artist, title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"artist": artist,
		"title":  title,
		"lyrics": text,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, ok := h.service.CacheStats()
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.InvalidateCache(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := map[string]any{"error": err.Error()}

	var syntaxErr *apperrors.QuerySyntaxError
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &syntaxErr):
		body["error"] = syntaxErr.Reason
		body["position"] = syntaxErr.Pos
	case errors.As(err, &appErr):
		body["error"] = appErr.Message
	case status >= http.StatusInternalServerError:
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		body["error"] = http.StatusText(status)
	}
	h.writeJSON(w, status, body)
}
