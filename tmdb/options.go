package tmdb

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout. Zero keeps the client's own
// setting. It applies after every other option, so it also covers a client
// passed through WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithImageHost overrides the image CDN prefixes.
func WithImageHost(host ImageHost) Option {
	return func(c *Client) {
		if host.PosterBase != "" {
			c.images.PosterBase = host.PosterBase
		}
		if host.ImageBase != "" {
			c.images.ImageBase = host.ImageBase
		}
	}
}

// WithSentryHub reports failed fetches to Sentry through hub
func WithSentryHub(hub *sentry.Hub) Option {
	return func(c *Client) {
		c.hub = hub
	}
}
