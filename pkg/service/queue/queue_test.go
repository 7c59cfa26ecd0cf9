package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
)

func fastPolicy(name types.QueueName, concurrency int) queue.Policy {
	p := queue.DefaultPolicy(name)
	p.Concurrency = concurrency
	p.BackoffBase = time.Millisecond
	return p
}

func newJob(key string, actionType types.ActionType) *queue.Job {
	return &queue.Job{
		Key:        types.IdempotencyKey(key),
		ActionID:   types.NewActionID(),
		RunID:      types.NewRunID(),
		ActionType: actionType,
	}
}

func TestQueueDedupe(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	handler := func(ctx context.Context, job *queue.Job) error {
		close(started)
		<-release
		return nil
	}

	mgr := queue.NewManager(handler, nil,
		queue.WithPolicy(types.QueueGeneral, fastPolicy(types.QueueGeneral, 1)))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	ok, err := mgr.Enqueue(newJob("dup-key", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).True()

	<-started

	// Same key while the first is still executing is suppressed
	ok, err = mgr.Enqueue(newJob("dup-key", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).False()

	close(release)
}

func TestQueueRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan error, 1)

	handler := func(ctx context.Context, job *queue.Job) error {
		attempts.Add(1)
		return goerr.New("always fails")
	}
	onDone := func(ctx context.Context, job *queue.Job, execErr error) {
		done <- execErr
	}

	policy := fastPolicy(types.QueueGeneral, 1)
	policy.Attempts = 3

	mgr := queue.NewManager(handler, onDone,
		queue.WithPolicy(types.QueueGeneral, policy))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	_, err := mgr.Enqueue(newJob("retry-key", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()

	select {
	case execErr := <-done:
		gt.Value(t, execErr).NotNil()
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	gt.Value(t, attempts.Load()).Equal(int32(3))

	stats, err := mgr.Stats(types.QueueGeneral)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.Failed).Equal(1)
	gt.Value(t, stats.Completed).Equal(0)
}

func TestQueuePriorityOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	done := make(chan struct{}, 8)

	handler := func(ctx context.Context, job *queue.Job) error {
		once.Do(func() { close(started) })
		<-release
		mu.Lock()
		order = append(order, job.Key.String())
		mu.Unlock()
		return nil
	}
	onDone := func(ctx context.Context, job *queue.Job, execErr error) {
		done <- struct{}{}
	}

	mgr := queue.NewManager(handler, onDone,
		queue.WithPolicy(types.QueueGeneral, fastPolicy(types.QueueGeneral, 1)))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	// Block the single executor, then queue a low and a high priority job
	_, err := mgr.Enqueue(newJob("blocker", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()
	<-started

	_, err = mgr.Enqueue(newJob("low", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()
	_, err = mgr.Enqueue(newJob("high", types.ActionTypeGeneric), 10, 0)
	gt.NoError(t, err).Required()

	close(release)
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("jobs did not finish")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	gt.Array(t, order).Length(3)
	gt.Value(t, order[0]).Equal("blocker")
	gt.Value(t, order[1]).Equal("high")
	gt.Value(t, order[2]).Equal("low")
}

func TestQueuePauseResume(t *testing.T) {
	done := make(chan struct{}, 1)

	handler := func(ctx context.Context, job *queue.Job) error {
		return nil
	}
	onDone := func(ctx context.Context, job *queue.Job, execErr error) {
		done <- struct{}{}
	}

	mgr := queue.NewManager(handler, onDone,
		queue.WithPolicy(types.QueueGeneral, fastPolicy(types.QueueGeneral, 1)))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	gt.NoError(t, mgr.Pause(types.QueueGeneral)).Required()

	_, err := mgr.Enqueue(newJob("paused-key", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()

	select {
	case <-done:
		t.Fatal("job ran while queue was paused")
	case <-time.After(100 * time.Millisecond):
	}

	stats, err := mgr.Stats(types.QueueGeneral)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.Waiting).Equal(1)
	gt.Bool(t, stats.Paused).True()

	gt.NoError(t, mgr.Resume(types.QueueGeneral)).Required()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run after resume")
	}
}

func TestQueueDelayedJob(t *testing.T) {
	done := make(chan struct{}, 1)

	handler := func(ctx context.Context, job *queue.Job) error {
		return nil
	}
	onDone := func(ctx context.Context, job *queue.Job, execErr error) {
		done <- struct{}{}
	}

	mgr := queue.NewManager(handler, onDone,
		queue.WithPolicy(types.QueueGeneral, fastPolicy(types.QueueGeneral, 1)))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	_, err := mgr.Enqueue(newJob("delayed-key", types.ActionTypeGeneric), 0, 50*time.Millisecond)
	gt.NoError(t, err).Required()

	stats, err := mgr.Stats(types.QueueGeneral)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.Delayed).Equal(1)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("delayed job did not run")
	}
}

func TestQueuePanicRecovery(t *testing.T) {
	done := make(chan error, 1)

	policy := fastPolicy(types.QueueGeneral, 1)
	policy.Attempts = 1

	handler := func(ctx context.Context, job *queue.Job) error {
		panic("handler exploded")
	}
	onDone := func(ctx context.Context, job *queue.Job, execErr error) {
		done <- execErr
	}

	mgr := queue.NewManager(handler, onDone,
		queue.WithPolicy(types.QueueGeneral, policy))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	_, err := mgr.Enqueue(newJob("panic-key", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()

	select {
	case execErr := <-done:
		gt.Value(t, execErr).NotNil()
	case <-time.After(5 * time.Second):
		t.Fatal("panicking job did not finish")
	}
}

func TestQueueClean(t *testing.T) {
	done := make(chan struct{}, 2)

	handler := func(ctx context.Context, job *queue.Job) error {
		return nil
	}
	onDone := func(ctx context.Context, job *queue.Job, execErr error) {
		done <- struct{}{}
	}

	mgr := queue.NewManager(handler, onDone,
		queue.WithPolicy(types.QueueGeneral, fastPolicy(types.QueueGeneral, 2)))
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	for _, key := range []string{"clean-a", "clean-b"} {
		_, err := mgr.Enqueue(newJob(key, types.ActionTypeGeneric), 0, 0)
		gt.NoError(t, err).Required()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("jobs did not finish")
		}
	}

	// Zero cutoff drops every retained record
	removed, err := mgr.Clean(types.QueueGeneral, 0)
	gt.NoError(t, err).Required()
	gt.Value(t, removed).Equal(2)

	stats, err := mgr.Stats(types.QueueGeneral)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.Completed).Equal(0)
}

func TestManagerRouting(t *testing.T) {
	blocked := make(chan struct{})
	started := make(chan struct{})

	handler := func(ctx context.Context, job *queue.Job) error {
		close(started)
		<-blocked
		return nil
	}

	mgr := queue.NewManager(handler, nil)
	defer func() {
		close(blocked)
		mgr.Shutdown(context.Background()) //nolint:errcheck
	}()

	_, err := mgr.Enqueue(newJob("routed-key", types.ActionTypeContentGeneration), 0, 0)
	gt.NoError(t, err).Required()
	<-started

	stats, err := mgr.Stats(types.QueueContent)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.Active).Equal(1)

	general, err := mgr.Stats(types.QueueGeneral)
	gt.NoError(t, err).Required()
	gt.Value(t, general.Active).Equal(0)
}

func TestManagerShutdownDrains(t *testing.T) {
	var finished atomic.Bool
	started := make(chan struct{})

	handler := func(ctx context.Context, job *queue.Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	}

	mgr := queue.NewManager(handler, nil,
		queue.WithPolicy(types.QueueGeneral, fastPolicy(types.QueueGeneral, 1)))

	_, err := mgr.Enqueue(newJob("drain-key", types.ActionTypeGeneric), 0, 0)
	gt.NoError(t, err).Required()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gt.NoError(t, mgr.Shutdown(ctx)).Required()
	gt.Bool(t, finished.Load()).True()

	// A closed manager rejects new work
	_, err = mgr.Enqueue(newJob("late-key", types.ActionTypeGeneric), 0, 0)
	gt.Value(t, err).NotNil()
}
