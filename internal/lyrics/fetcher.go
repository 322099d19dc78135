package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/resilience"
)

// Fetcher returns the lyrics text of a song, or an error matching
// apperrors.ErrLyricsNotFound.
type Fetcher interface {
	Fetch(ctx context.Context, artist, title string) (string, error)
}

// containerClasses identify the element wrapping the lyrics block.
var containerClasses = []string{"col-xs-12", "col-lg-8", "text-center"}

const maxPageSize = 4 << 20

// statusError is a non-404 HTTP failure from the lyrics site.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lyrics site returned status %d", e.code)
}

// HTTPFetcher scrapes lyrics pages. Requests go through a circuit breaker and
// are retried with backoff on transport errors, 429 and 5xx responses.
type HTTPFetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	breaker   *resilience.CircuitBreaker
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

func NewHTTPFetcher(cfg config.LyricsConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		breaker: resilience.NewCircuitBreaker("lyrics-site", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			ResetTimeout:     cfg.ResetTimeout,
		}),
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			ShouldRetry:  isTransient,
		},
		logger: slog.Default().With("component", "lyrics-fetcher"),
	}
}

// PageURL is the lyrics page address for artist and title. Artist names are
// normalized like catalog records before slugging.
func (f *HTTPFetcher) PageURL(artist, title string) (string, error) {
	a := Slug(catalog.NormalizeArtist(artist))
	t := Slug(catalog.NormalizeTitle(title))
	if a == "" || t == "" {
		return "", fmt.Errorf("%w: artist and title must contain letters or digits", apperrors.ErrInvalidInput)
	}
	return f.baseURL + "/" + url.PathEscape(a) + "/" + url.PathEscape(t) + ".html", nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, artist, title string) (string, error) {
	pageURL, err := f.PageURL(artist, title)
	if err != nil {
		return "", err
	}
	var text string
	err = resilience.Retry(ctx, "lyrics-fetch", f.retry, func() error {
		return f.breaker.ExecuteCounting(func() error {
			var err error
			text, err = f.fetchOnce(ctx, pageURL)
			return err
		}, isTransient)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrLyricsNotFound) {
			f.logger.Warn("lyrics fetch failed", "url", pageURL, "error", err)
		}
		return "", err
	}
	f.logger.Info("lyrics fetched", "url", pageURL, "bytes", len(text))
	return text, nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (f *HTTPFetcher) BreakerState() resilience.State {
	return f.breaker.GetState()
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", apperrors.ErrLyricsNotFound, pageURL)
	case resp.StatusCode != http.StatusOK:
		return "", &statusError{code: resp.StatusCode}
	}
	return ExtractLyrics(io.LimitReader(resp.Body, maxPageSize))
}

func isTransient(err error) bool {
	if errors.Is(err, apperrors.ErrLyricsNotFound) ||
		errors.Is(err, resilience.ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// ExtractLyrics returns the lyrics in an HTML page: the text of the first
// class-less div inside the lyrics container, one line per text line, with
// blank lines dropped.
func ExtractLyrics(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing lyrics page: %w", err)
	}
	container := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClasses(n, containerClasses)
	})
	if container == nil {
		return "", fmt.Errorf("%w: lyrics container missing", apperrors.ErrLyricsNotFound)
	}
	block := findNode(container, func(n *html.Node) bool {
		return n != container && n.Type == html.ElementNode && n.Data == "div" && !hasAttr(n, "class")
	})
	if block == nil {
		return "", fmt.Errorf("%w: lyrics block missing", apperrors.ErrLyricsNotFound)
	}

	var sb strings.Builder
	collectText(block, &sb)
	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: lyrics block empty", apperrors.ErrLyricsNotFound)
	}
	return strings.Join(lines, "\n"), nil
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		sb.WriteString(n.Data)
	case n.Type == html.CommentNode:
	case n.Type == html.ElementNode && n.Data == "br":
		sb.WriteByte('\n')
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectText(c, sb)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "div") {
			sb.WriteByte('\n')
		}
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClasses(n *html.Node, want []string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		have := strings.Fields(a.Val)
		for _, w := range want {
			found := false
			for _, h := range have {
				if h == w {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}
