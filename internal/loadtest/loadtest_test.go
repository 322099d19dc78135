package loadtest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCountsStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("fields"))
		if r.URL.Query().Get("corpus") == "albums" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), srv.Client(), Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		Queries: []Query{
			{Q: "love", Corpus: "songs", Field: "lyricsText"},
			{Q: "opera", Corpus: "albums", Field: "albumName"},
		},
	})
	require.NoError(t, err)

	require.Positive(t, report.Total)
	assert.Equal(t, report.Total, report.Success+report.Errors)
	assert.Equal(t, report.Success, report.StatusCodes[http.StatusOK])
	assert.Equal(t, report.Errors, report.StatusCodes[http.StatusBadRequest])
	assert.True(t, isSorted(report.Latencies))

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "Total Requests:")
	assert.Contains(t, out.String(), "400:")
}

func TestPercentile(t *testing.T) {
	r := &Report{Latencies: []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	assert.Equal(t, time.Duration(5), r.Percentile(50))
	assert.Equal(t, time.Duration(10), r.Percentile(99))
	assert.Equal(t, time.Duration(1), r.Percentile(0))
	assert.Zero(t, (&Report{}).Percentile(50))
}

func isSorted(ds []time.Duration) bool {
	for i := 1; i < len(ds); i++ {
		if ds[i] < ds[i-1] {
			return false
		}
	}
	return true
}
