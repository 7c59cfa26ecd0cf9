package usecase

import (
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/service/notify"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
)

// UseCases wires the pipeline components around the repository. It is an
// explicitly constructed service instance; there is no process-wide state.
type UseCases struct {
	repo      interfaces.Repository
	queues    *queue.Manager
	projector *Projector
	verifier  *Verifier

	fetcher      interfaces.LiveFetcher
	inspector    interfaces.Inspector
	notifier     notify.Service
	checkTimeout time.Duration
	crawlWindow  time.Duration
}

type Option func(*UseCases)

// WithFetcher sets the live fetcher used by verification checks
func WithFetcher(fetcher interfaces.LiveFetcher) Option {
	return func(uc *UseCases) {
		uc.fetcher = fetcher
	}
}

// WithInspector sets the markup inspector used by verification checks
func WithInspector(inspector interfaces.Inspector) Option {
	return func(uc *UseCases) {
		uc.inspector = inspector
	}
}

// WithNotifier sets the best-effort notifier for terminal events
func WithNotifier(notifier notify.Service) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

// WithCheckTimeout bounds each live verification fetch
func WithCheckTimeout(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.checkTimeout = d
	}
}

// WithCrawlWindow sets the recency window for crawl verification
func WithCrawlWindow(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.crawlWindow = d
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:         repo,
		checkTimeout: 10 * time.Second,
		crawlWindow:  time.Hour,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.projector = NewProjector(repo, uc.notifier)
	uc.verifier = NewVerifier(repo, uc.projector, uc.fetcher, uc.inspector,
		uc.checkTimeout, uc.crawlWindow)

	return uc
}

// AttachQueues binds the queue transport. The ledger works without it in
// degraded mode: runs are recorded as pending and executed out-of-band.
func (uc *UseCases) AttachQueues(queues *queue.Manager) {
	uc.queues = queues
}

// Projector returns the status projector, the single writer of
// Action/Run/Patch state
func (uc *UseCases) Projector() *Projector {
	return uc.projector
}

// Verifier returns the verification engine
func (uc *UseCases) Verifier() *Verifier {
	return uc.verifier
}

// Repository returns the underlying repository
func (uc *UseCases) Repository() interfaces.Repository {
	return uc.repo
}
