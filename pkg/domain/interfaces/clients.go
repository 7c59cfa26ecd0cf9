package interfaces

import (
	"context"
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
)

// ContentGenerator produces article content via an external model call
type ContentGenerator interface {
	Generate(ctx context.Context, req *model.GenerateRequest) (*model.Article, error)
}

// PublishResult is the outcome of publishing an article to the CMS
type PublishResult struct {
	PublicURL string
	RemoteID  string
}

// Publisher pushes content to the external CMS
type Publisher interface {
	Publish(ctx context.Context, article *model.Article) (*PublishResult, error)
}

// FetchResult is one live page fetch
type FetchResult struct {
	StatusCode int
	Body       string
}

// LiveFetcher fetches a live page fresh, bypassing caches, with a bounded timeout.
// It is shared by worker handlers and the verification engine.
type LiveFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error)
}

// Inspector parses a markup string and supports selector-based lookup
type Inspector interface {
	// Attr returns the value of an attribute on the first node matching the
	// selector. found is false when no node matches.
	Attr(markup, selector, attr string) (value string, found bool, err error)

	// Text returns the text content of the first node matching the selector
	Text(markup, selector string) (text string, found bool, err error)

	// JSONLDBlocks returns the raw contents of all JSON-LD script blocks
	JSONLDBlocks(markup string) ([]string, error)
}
