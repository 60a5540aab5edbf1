package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// Client represents a TMDB API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	images     ImageHost
	logger     zerolog.Logger
	hub        *sentry.Hub
}

// NewClient creates a new TMDB client. Unlike the other service clients it
// does not probe the API up front; use TestConnection for that.
func NewClient(baseURL, apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: tmdb URL is required", ErrInvalidConfig)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: tmdb API key is required", ErrInvalidConfig)
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		images:     DefaultImageHost,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.timeout > 0 {
		// copy so a caller-supplied client is left as it was
		hc := *client.httpClient
		hc.Timeout = client.timeout
		client.httpClient = &hc
	}

	return client, nil
}

// Images returns the image host used for display URLs
func (c *Client) Images() ImageHost {
	return c.images
}

// doRequest performs an authenticated GET and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", c.apiKey)

	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, resp.StatusCode, nil
}

// Fetch retrieves and decodes a resource. All failures come back as a
// *FetchError that matches ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, kind Kind, params Params) (any, error) {
	endpoint, values, err := kind.endpoint(params)
	if err != nil {
		return nil, c.fail(kind, endpoint, 0, err)
	}

	body, status, err := c.doRequest(ctx, endpoint, values)
	if err != nil {
		return nil, c.fail(kind, endpoint, status, err)
	}

	value, err := Decode(kind, body)
	if err != nil {
		return nil, c.fail(kind, endpoint, status, err)
	}

	c.logger.Debug().
		Str("kind", string(kind)).
		Str("endpoint", endpoint).
		Msg("Fetched TMDB resource")

	return value, nil
}

func (c *Client) fail(kind Kind, endpoint string, status int, cause error) error {
	fetchErr := &FetchError{
		Kind:       kind,
		Endpoint:   endpoint,
		StatusCode: status,
		Cause:      cause,
	}
	c.logger.Warn().
		Str("kind", string(kind)).
		Str("endpoint", endpoint).
		Int("status", status).
		AnErr("cause", cause).
		Msg("TMDB fetch failed")
	c.report(fetchErr)
	return fetchErr
}

// report sends a fetch failure to Sentry. Cancelled requests are skipped.
func (c *Client) report(fetchErr *FetchError) {
	if c.hub == nil {
		return
	}
	if errors.Is(fetchErr.Cause, context.Canceled) {
		return
	}

	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("tmdb.kind", string(fetchErr.Kind))
		if fetchErr.StatusCode != 0 {
			scope.SetTag("tmdb.status", strconv.Itoa(fetchErr.StatusCode))
		}
		scope.SetContext("tmdb", sentry.Context{
			"endpoint": fetchErr.Endpoint,
			"detail":   fetchErr.Detail(),
		})
		c.hub.CaptureException(fetchErr)
	})
}

// TestConnection checks the API key against the configuration endpoint
func (c *Client) TestConnection(ctx context.Context) error {
	if _, _, err := c.doRequest(ctx, "/configuration", nil); err != nil {
		return fmt.Errorf("failed to connect to TMDB: %w", err)
	}
	return nil
}

func fetchAs[T any](ctx context.Context, c *Client, kind Kind, params Params) (*T, error) {
	value, err := c.Fetch(ctx, kind, params)
	if err != nil {
		return nil, err
	}
	typed, ok := value.(*T)
	if !ok {
		return nil, c.fail(kind, "", 0, fmt.Errorf("unexpected response type %T", value))
	}
	return typed, nil
}

// SearchMovies searches movies by title
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*MoviePage, error) {
	return fetchAs[MoviePage](ctx, c, KindSearch, Params{Query: query, Page: page})
}

// GetMovieDetail retrieves a movie's full record
func (c *Client) GetMovieDetail(ctx context.Context, movieID int64) (*MovieDetail, error) {
	return fetchAs[MovieDetail](ctx, c, KindDetail, Params{ID: movieID})
}

// GetMovieCredits retrieves a movie's cast
func (c *Client) GetMovieCredits(ctx context.Context, movieID int64) (*Credits, error) {
	return fetchAs[Credits](ctx, c, KindCredits, Params{ID: movieID})
}

// GetMovieImages retrieves a movie's posters
func (c *Client) GetMovieImages(ctx context.Context, movieID int64) (*Images, error) {
	return fetchAs[Images](ctx, c, KindImages, Params{ID: movieID})
}

// GetMovieReviews retrieves a movie's reviews
func (c *Client) GetMovieReviews(ctx context.Context, movieID int64) (*ReviewPage, error) {
	return fetchAs[ReviewPage](ctx, c, KindReviews, Params{ID: movieID})
}

// GetSimilarMovies retrieves recommendations for a movie
func (c *Client) GetSimilarMovies(ctx context.Context, movieID int64) (*MoviePage, error) {
	return fetchAs[MoviePage](ctx, c, KindSimilar, Params{ID: movieID})
}

// GetNowPlaying retrieves the now-playing list
func (c *Client) GetNowPlaying(ctx context.Context) (*MoviePage, error) {
	return fetchAs[MoviePage](ctx, c, KindNowPlaying, Params{})
}

// GetTopRated retrieves the top-rated list
func (c *Client) GetTopRated(ctx context.Context) (*MoviePage, error) {
	return fetchAs[MoviePage](ctx, c, KindTopRated, Params{})
}

// GetUpcoming retrieves the upcoming list
func (c *Client) GetUpcoming(ctx context.Context) (*MoviePage, error) {
	return fetchAs[MoviePage](ctx, c, KindUpcoming, Params{})
}

var (
	_ API          = (*Client)(nil)
	_ MovieFetcher = (*Client)(nil)
)
