package queue

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// Manager owns the fixed set of typed work queues. Queues are created lazily
// on first use so an idle queue consumes nothing.
type Manager struct {
	mu       sync.Mutex
	queues   map[types.QueueName]*Queue
	policies map[types.QueueName]Policy
	handler  Handler
	onDone   Completion
	closed   bool
}

// Option configures the Manager
type Option func(*Manager)

// WithPolicy overrides the default policy of one queue
func WithPolicy(name types.QueueName, policy Policy) Option {
	return func(m *Manager) {
		m.policies[name] = policy
	}
}

// NewManager creates a queue manager. The handler executes every job; the
// completion hook observes terminal outcomes.
func NewManager(handler Handler, onDone Completion, opts ...Option) *Manager {
	m := &Manager{
		queues:   make(map[types.QueueName]*Queue),
		policies: make(map[types.QueueName]Policy),
		handler:  handler,
		onDone:   onDone,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) queue(name types.QueueName) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, goerr.New("queue manager is shut down")
	}

	if q, ok := m.queues[name]; ok {
		return q, nil
	}

	policy, ok := m.policies[name]
	if !ok {
		policy = DefaultPolicy(name)
	}

	q := newQueue(name, policy, m.handler, m.onDone)
	m.queues[name] = q
	logging.Default().Info("queue created",
		"queue", name.String(),
		"concurrency", policy.Concurrency,
		"attempts", policy.Attempts,
	)
	return q, nil
}

// Enqueue routes a job to the queue of its action type. It returns false when
// the idempotency key is already queued or executing.
func (m *Manager) Enqueue(job *Job, priority int, delay time.Duration) (bool, error) {
	q, err := m.queue(job.ActionType.Queue())
	if err != nil {
		return false, err
	}

	job.Priority = priority
	return q.Enqueue(job, delay)
}

// Stats returns the depth counters of one queue
func (m *Manager) Stats(name types.QueueName) (Stats, error) {
	if !name.IsValid() {
		return Stats{}, goerr.New("invalid queue name", goerr.V("queue", name))
	}
	q, err := m.queue(name)
	if err != nil {
		return Stats{}, err
	}
	return q.Stats(), nil
}

// Pause stops one queue from admitting jobs; in-flight jobs finish
func (m *Manager) Pause(name types.QueueName) error {
	q, err := m.queue(name)
	if err != nil {
		return err
	}
	q.Pause()
	return nil
}

// Resume re-enables admission on one queue
func (m *Manager) Resume(name types.QueueName) error {
	q, err := m.queue(name)
	if err != nil {
		return err
	}
	q.Resume()
	return nil
}

// Clean drops finished-job records older than the cutoff on one queue
func (m *Manager) Clean(name types.QueueName, olderThan time.Duration) (int, error) {
	q, err := m.queue(name)
	if err != nil {
		return 0, err
	}
	return q.Clean(olderThan), nil
}

// Shutdown stops accepting new jobs and drains in-flight executors across all
// queues. Jobs still waiting are abandoned; their runs stay recoverable in
// the ledger.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	queues := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, q := range queues {
		eg.Go(func() error {
			return q.shutdown(egCtx)
		})
	}

	return eg.Wait()
}
