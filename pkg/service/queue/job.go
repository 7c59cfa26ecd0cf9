package queue

import (
	"container/heap"
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// Job is one unit of queued work. Jobs are keyed by idempotency key; a key
// already waiting or executing is never enqueued twice.
type Job struct {
	Key        types.IdempotencyKey
	Queue      types.QueueName
	ActionID   types.ActionID
	RunID      types.RunID
	ActionType types.ActionType

	// Priority reorders pending jobs; higher runs first. Zero is normal.
	Priority int

	// Attempt is the 1-based attempt number, set by the queue before each
	// handler invocation.
	Attempt int

	EnqueuedAt time.Time
	ReadyAt    time.Time

	seq uint64

	progress func(pct int)
}

// ReportProgress reports fractional progress for observability only;
// progress never drives control decisions.
func (j *Job) ReportProgress(pct int) {
	if j.progress != nil {
		j.progress(pct)
	}
}

// SetProgressFunc overrides the progress sink. The queue installs a logging
// sink on enqueue; direct executions can install their own.
func (j *Job) SetProgressFunc(fn func(pct int)) {
	j.progress = fn
}

// jobHeap orders pending jobs by priority (higher first), then FIFO
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(*Job))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

var _ heap.Interface = &jobHeap{}
