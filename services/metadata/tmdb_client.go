package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"iptvdesk/models"
)

// Minimal TMDB v3 client (details and credits endpoints we need)

const (
	tmdbBaseURL        = "https://api.themoviedb.org/3"
	tmdbImageBaseURL   = "https://image.tmdb.org/t/p/"
	tmdbRequestTimeout = 10 * time.Second

	// posterSize is the image width served to consumers.
	posterSize = "w500"

	// Retry policy for transient failures: two attempts, 0.5s then 1s.
	tmdbRetryAttempts = 2
	tmdbRetryDelay    = 500 * time.Millisecond
)

// ErrNotFound is returned when the provider has no entity for the given id.
var ErrNotFound = errors.New("metadata: entity not found")

// httpStatusError marks a response status worth retrying (5xx).
type httpStatusError struct {
	status int
	url    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("tmdb request %s returned status %d", e.url, e.status)
}

// tmdbClient talks to the TMDB API. Authentication uses either the v3 API
// key (query param) or the v4 read access token (bearer header); the key
// wins when both are configured.
type tmdbClient struct {
	apiKey          string
	readAccessToken string
	baseURL         string
	httpc           *http.Client

	// Client-side throttle so burst prefetches stay inside provider limits.
	limiter *rate.Limiter
}

func newTMDBClient(apiKey, readAccessToken string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: tmdbRequestTimeout}
	}
	return &tmdbClient{
		apiKey:          apiKey,
		readAccessToken: readAccessToken,
		baseURL:         tmdbBaseURL,
		httpc:           httpc,
		limiter:         rate.NewLimiter(rate.Every(25*time.Millisecond), 4),
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c.apiKey != "" || c.readAccessToken != ""
}

// endpointPath maps an entity kind to its API path.
func endpointPath(kind string, id int64) (string, error) {
	switch kind {
	case models.KindMovieDetails:
		return fmt.Sprintf("/movie/%d", id), nil
	case models.KindSeriesDetails:
		return fmt.Sprintf("/tv/%d", id), nil
	case models.KindMovieCredits:
		return fmt.Sprintf("/movie/%d/credits", id), nil
	case models.KindSeriesCredits:
		return fmt.Sprintf("/tv/%d/credits", id), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

// FetchRaw fetches the raw provider payload for one entity. Transient
// failures (network errors, 5xx) are retried with backoff; 404 maps to
// ErrNotFound and other client errors are terminal.
func (c *tmdbClient) FetchRaw(ctx context.Context, kind string, id int64) (json.RawMessage, error) {
	if !c.isConfigured() {
		return nil, errors.New("tmdb client not configured")
	}
	path, err := endpointPath(kind, id)
	if err != nil {
		return nil, err
	}

	return retry.DoWithData(
		func() (json.RawMessage, error) { return c.fetchOnce(ctx, path) },
		retry.Context(ctx),
		retry.Attempts(tmdbRetryAttempts),
		retry.Delay(tmdbRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) {
				return statusErr.status >= 500
			}
			// Network-level failures are retryable; ErrNotFound and other
			// 4xx are terminal.
			return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
		}),
	)
}

func (c *tmdbClient) fetchOnce(ctx context.Context, path string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("api_key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	} else {
		req.Header.Set("Authorization", "Bearer "+c.readAccessToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, &httpStatusError{status: resp.StatusCode, url: path}
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb request %s returned status %d: %s", path, resp.StatusCode, body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tmdb response read failed: %w", err)
	}
	return raw, nil
}

// imageURL joins the TMDB image base with a size and path, e.g.
// imageURL("/abc.jpg", "w500") → "https://image.tmdb.org/t/p/w500/abc.jpg".
// Returns "" for an empty path so callers can omit the field.
func imageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return tmdbImageBaseURL + size + path
}
