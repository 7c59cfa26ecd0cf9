package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/utils/safe"
)

// Client publishes articles to the external CMS over its REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ interfaces.Publisher = &Client{}

// Option is a functional option for client configuration
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (for testing)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a CMS publishing client
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("CMS base URL is required")
	}

	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type publishRequest struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

type publishResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Publish creates a post on the CMS and returns its public URL
func (c *Client) Publish(ctx context.Context, article *model.Article) (*interfaces.PublishResult, error) {
	body, err := json.Marshal(publishRequest{
		Title:           article.MetaTitle,
		Content:         article.Content,
		MetaTitle:       article.MetaTitle,
		MetaDescription: article.MetaDescription,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode publish request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/posts", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build publish request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call CMS")
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("CMS rejected publish request", goerr.V("status", resp.StatusCode))
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode CMS response")
	}
	if out.URL == "" {
		return nil, goerr.New("CMS response has no public URL")
	}

	return &interfaces.PublishResult{PublicURL: out.URL, RemoteID: out.ID}, nil
}
