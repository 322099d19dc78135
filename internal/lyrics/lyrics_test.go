package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/resilience"
)

const page = `<html><body>
<div class="container main-page">
  <div class="row">
    <div class="col-xs-12 col-lg-8 text-center">
      <div class="ringtone">ad</div>
      <b>"Bohemian Rhapsody"</b>
      <div>
<!-- Usage of azlyrics.com content by any third-party lyrics provider is prohibited. -->
Is this the real life?<br>
Is this just fantasy?<br>

Caught in a landslide,<br>
No escape from reality
      </div>
      <div class="noprint">footer</div>
    </div>
  </div>
</div>
</body></html>`

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Queen":                  "queen",
		"Bohemian Rhapsody":      "bohemianrhapsody",
		"Guns N' Roses":          "gunsnroses",
		"AC/DC":                  "acdc",
		"Jay-Z":                  "jay-z",
		"  Don't Stop Me Now!  ": "dontstopmenow",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestExtractLyrics(t *testing.T) {
	text, err := ExtractLyrics(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t,
		"Is this the real life?\nIs this just fantasy?\nCaught in a landslide,\nNo escape from reality",
		text)
}

func TestExtractLyricsNestedBlock(t *testing.T) {
	nested := `<html><body>
<div class="col-xs-12 col-lg-8 text-center">
  <div class="ringtone">ad</div>
  <div class="lyrics-wrap">
    <div>
Under pressure<br>
That burns a building down
    </div>
  </div>
</div>
</body></html>`
	text, err := ExtractLyrics(strings.NewReader(nested))
	require.NoError(t, err)
	assert.Equal(t, "Under pressure\nThat burns a building down", text)
}

func TestExtractLyricsMissingContainer(t *testing.T) {
	_, err := ExtractLyrics(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	assert.ErrorIs(t, err, apperrors.ErrLyricsNotFound)
}

func newTestFetcher(baseURL string) *HTTPFetcher {
	f := NewHTTPFetcher(config.LyricsConfig{
		BaseURL:          baseURL,
		UserAgent:        "test-agent",
		Timeout:          2 * time.Second,
		MaxAttempts:      3,
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	f.retry.InitialDelay = time.Millisecond
	f.retry.MaxDelay = 2 * time.Millisecond
	return f
}

func TestFetch(t *testing.T) {
	var gotPath, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.UserAgent()
		w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := newTestFetcher(srv.URL+"/lyrics").Fetch(context.Background(), "Queen Lyrics", "Bohemian Rhapsody (Remastered)")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Is this the real life?"))
	assert.Equal(t, "/lyrics/queen/bohemianrhapsody.html", gotPath)
	assert.Equal(t, "test-agent", gotAgent)
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "Nobody", "Nothing")
		assert.ErrorIs(t, err, apperrors.ErrLyricsNotFound)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, resilience.StateClosed, f.BreakerState())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(page))
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Fetch(context.Background(), "Queen", "Bohemian Rhapsody")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchOpensCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	_, err := f.Fetch(context.Background(), "Queen", "Bohemian Rhapsody")
	require.Error(t, err)
	assert.Equal(t, resilience.StateOpen, f.BreakerState())

	before := calls.Load()
	_, err = f.Fetch(context.Background(), "Queen", "Bohemian Rhapsody")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, calls.Load())
}

func TestFetchRejectsEmptySlug(t *testing.T) {
	_, err := newTestFetcher("http://unused").Fetch(context.Background(), "!!!", "???")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
