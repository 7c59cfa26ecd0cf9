package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/utils/safe"
)

const (
	// DefaultTimeout bounds a single live fetch so one unreachable target
	// cannot stall a verification pass.
	DefaultTimeout = 10 * time.Second

	maxBodySize = 4 << 20 // 4 MiB
)

// Client fetches live pages fresh, bypassing intermediate caches
type Client struct {
	httpClient *http.Client
	userAgent  string
}

var _ interfaces.LiveFetcher = &Client{}

// Option is a functional option for client configuration
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (for testing)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header for all fetches
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a live fetcher
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  "sitefix-verifier/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch retrieves the URL with a bounded timeout. Non-2xx responses are not
// errors; the caller inspects the status code.
func (c *Client) Fetch(ctx context.Context, url string, timeout time.Duration) (*interfaces.FetchResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build fetch request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch URL", goerr.V("url", url))
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.V("url", url))
	}

	return &interfaces.FetchResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
