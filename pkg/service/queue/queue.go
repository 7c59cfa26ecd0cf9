package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

// Policy is the retry/retention policy of one queue
type Policy struct {
	Concurrency int
	Attempts    int
	BackoffBase time.Duration
	JobTimeout  time.Duration

	// Retention caps bound storage growth of finished-job records
	KeepCompleted int
	KeepFailed    int
}

// DefaultPolicy returns the default policy for a queue
func DefaultPolicy(name types.QueueName) Policy {
	return Policy{
		Concurrency:   name.DefaultConcurrency(),
		Attempts:      3,
		BackoffBase:   2 * time.Second,
		JobTimeout:    5 * time.Minute,
		KeepCompleted: 100,
		KeepFailed:    500,
	}
}

// Handler executes one attempt of a job
type Handler func(ctx context.Context, job *Job) error

// Completion observes the terminal outcome of a job. execErr is nil on
// success and carries the last attempt's error when the attempt budget is
// exhausted.
type Completion func(ctx context.Context, job *Job, execErr error)

// finishedRecord is one retained finished-job entry
type finishedRecord struct {
	key        types.IdempotencyKey
	finishedAt time.Time
}

// Queue is one typed work queue with a bounded executor pool
type Queue struct {
	name    types.QueueName
	policy  Policy
	handler Handler
	onDone  Completion

	mu        sync.Mutex
	pending   jobHeap
	seen      map[types.IdempotencyKey]struct{}
	paused    bool
	active    int
	delayed   int
	completed []finishedRecord
	failed    []finishedRecord
	seq       uint64
	closed    bool

	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
	execWG sync.WaitGroup
}

func newQueue(name types.QueueName, policy Policy, handler Handler, onDone Completion) *Queue {
	q := &Queue{
		name:    name,
		policy:  policy,
		handler: handler,
		onDone:  onDone,
		seen:    make(map[types.IdempotencyKey]struct{}),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go q.schedule()
	return q
}

// Enqueue adds a job. It returns false when the idempotency key is already
// waiting or executing (duplicate suppression at the transport level).
func (q *Queue) Enqueue(job *Job, delay time.Duration) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, goerr.New("queue is shut down", goerr.V("queue", q.name))
	}
	if _, dup := q.seen[job.Key]; dup {
		return false, nil
	}

	q.seen[job.Key] = struct{}{}
	q.seq++
	job.seq = q.seq
	job.Queue = q.name
	job.EnqueuedAt = time.Now().UTC()
	job.ReadyAt = job.EnqueuedAt.Add(delay)
	job.progress = func(pct int) {
		logging.Default().Info("job progress",
			"queue", q.name.String(), "key", job.Key.String(), "pct", pct)
	}

	if delay > 0 {
		q.delayed++
		time.AfterFunc(delay, func() {
			q.mu.Lock()
			q.delayed--
			heap.Push(&q.pending, job)
			q.mu.Unlock()
			q.signal()
		})
	} else {
		heap.Push(&q.pending, job)
		q.signal()
	}

	return true, nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// schedule is the per-queue dispatch loop. It admits pending jobs to executor
// goroutines while respecting the concurrency ceiling and pause state.
func (q *Queue) schedule() {
	defer close(q.doneCh)

	for {
		q.mu.Lock()
		for !q.closed && !q.paused && q.active < q.policy.Concurrency && q.pending.Len() > 0 {
			job := heap.Pop(&q.pending).(*Job)
			q.active++
			q.execWG.Add(1)
			go q.execute(job)
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return
		}

		select {
		case <-q.wake:
		case <-q.stopCh:
			q.mu.Lock()
			q.closed = true
			q.mu.Unlock()
			return
		}
	}
}

// execute drives one job through its attempt budget with exponential backoff
func (q *Queue) execute(job *Job) {
	defer q.execWG.Done()

	logger := logging.Default().With("queue", q.name.String(), "key", job.Key.String())
	ctx := logging.With(context.Background(), logger)

	var lastErr error
	for attempt := 1; attempt <= q.policy.Attempts; attempt++ {
		job.Attempt = attempt
		lastErr = q.runAttempt(ctx, job)
		if lastErr == nil {
			break
		}

		logger.Warn("job attempt failed",
			"attempt", attempt, "max_attempts", q.policy.Attempts, "error", lastErr.Error())

		if attempt == q.policy.Attempts {
			break
		}

		// Exponential backoff: base, 2*base, 4*base, ...
		backoff := q.policy.BackoffBase << (attempt - 1)
		select {
		case <-time.After(backoff):
		case <-q.stopCh:
			// Shutdown during backoff abandons the job; it must be
			// idempotency-safe to re-run out-of-band.
			q.finish(ctx, job, goerr.Wrap(lastErr, "abandoned during shutdown"))
			return
		}
	}

	q.finish(ctx, job, lastErr)
}

func (q *Queue) runAttempt(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic in job handler", goerr.V("panic", r))
		}
	}()

	attemptCtx := ctx
	if q.policy.JobTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, q.policy.JobTimeout)
		defer cancel()
	}

	return q.handler(attemptCtx, job)
}

func (q *Queue) finish(ctx context.Context, job *Job, execErr error) {
	now := time.Now().UTC()

	q.mu.Lock()
	delete(q.seen, job.Key)
	q.active--
	if execErr == nil {
		q.completed = append(q.completed, finishedRecord{key: job.Key, finishedAt: now})
		if len(q.completed) > q.policy.KeepCompleted {
			q.completed = q.completed[len(q.completed)-q.policy.KeepCompleted:]
		}
	} else {
		q.failed = append(q.failed, finishedRecord{key: job.Key, finishedAt: now})
		if len(q.failed) > q.policy.KeepFailed {
			q.failed = q.failed[len(q.failed)-q.policy.KeepFailed:]
		}
	}
	q.mu.Unlock()
	q.signal()

	if q.onDone != nil {
		q.onDone(ctx, job, execErr)
	}
}

// Pause stops admitting new jobs to executors; in-flight jobs finish
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume re-enables job admission
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.signal()
}

// Clean drops retained finished-job records older than the cutoff
func (q *Queue) Clean(olderThan time.Duration) int {
	cutoff := time.Now().UTC().Add(-olderThan)

	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	keep := func(records []finishedRecord) []finishedRecord {
		kept := records[:0]
		for _, r := range records {
			if r.finishedAt.After(cutoff) {
				kept = append(kept, r)
			} else {
				removed++
			}
		}
		return kept
	}
	q.completed = keep(q.completed)
	q.failed = keep(q.failed)

	return removed
}

// Stats reports queue depth counters
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Waiting:   q.pending.Len(),
		Active:    q.active,
		Completed: len(q.completed),
		Failed:    len(q.failed),
		Delayed:   q.delayed,
		Paused:    q.paused,
	}
}

// shutdown stops the scheduler and waits for in-flight executors
func (q *Queue) shutdown(ctx context.Context) error {
	close(q.stopCh)
	q.signal()
	<-q.doneCh

	done := make(chan struct{})
	go func() {
		q.execWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "queue drain timed out", goerr.V("queue", q.name))
	}
}

// Stats holds the observable depth counters of one queue
type Stats struct {
	Waiting   int
	Active    int
	Completed int
	Failed    int
	Delayed   int
	Paused    bool
}
