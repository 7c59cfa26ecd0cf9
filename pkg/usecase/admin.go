package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
)

// GetAction loads one action with its runs
func (uc *UseCases) GetAction(ctx context.Context, actionID types.ActionID) (*model.Action, []*model.Run, error) {
	action, err := uc.repo.Action().Get(ctx, actionID)
	if err != nil {
		return nil, nil, goerr.Wrap(ErrActionNotFound, "failed to get action", goerr.V("action_id", actionID))
	}

	runs, err := uc.repo.Run().ListByAction(ctx, actionID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list runs", goerr.V("action_id", actionID))
	}

	return action, runs, nil
}

// ListEvents returns the audit trail of one action, oldest first
func (uc *UseCases) ListEvents(ctx context.Context, actionID types.ActionID) ([]*model.Event, error) {
	return uc.repo.Event().ListByAction(ctx, actionID)
}

// QueueStats returns the depth counters of one queue
func (uc *UseCases) QueueStats(ctx context.Context, name types.QueueName) (queue.Stats, error) {
	if uc.queues == nil {
		return queue.Stats{}, goerr.Wrap(ErrQueuesUnavailable, "cannot read queue stats")
	}
	return uc.queues.Stats(name)
}

// PauseQueue stops one queue from admitting jobs
func (uc *UseCases) PauseQueue(ctx context.Context, name types.QueueName) error {
	if uc.queues == nil {
		return goerr.Wrap(ErrQueuesUnavailable, "cannot pause queue")
	}
	return uc.queues.Pause(name)
}

// ResumeQueue re-enables admission on one queue
func (uc *UseCases) ResumeQueue(ctx context.Context, name types.QueueName) error {
	if uc.queues == nil {
		return goerr.Wrap(ErrQueuesUnavailable, "cannot resume queue")
	}
	return uc.queues.Resume(name)
}

// CleanQueue drops finished-job records older than the cutoff
func (uc *UseCases) CleanQueue(ctx context.Context, name types.QueueName, olderThan time.Duration) (int, error) {
	if uc.queues == nil {
		return 0, goerr.Wrap(ErrQueuesUnavailable, "cannot clean queue")
	}
	return uc.queues.Clean(name, olderThan)
}

// Shutdown drains the queue transport gracefully
func (uc *UseCases) Shutdown(ctx context.Context) error {
	if uc.queues == nil {
		return nil
	}
	return uc.queues.Shutdown(ctx)
}
