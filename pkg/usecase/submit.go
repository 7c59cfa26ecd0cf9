package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

// SubmitInput describes one action submission. A set ActionID targets an
// existing action (re-execution); empty creates a new one.
type SubmitInput struct {
	ActionID   types.ActionID
	ActionType types.ActionType
	SiteID     types.SiteID
	OwnerToken string
	Payload    map[string]any
	Policy     model.RunPolicy

	// DedupeToken distinguishes intentional re-executions of the same
	// action. Empty means "execute this action at most once".
	DedupeToken string

	Priority int
	Delay    time.Duration
}

// SubmitResult reports the outcome of a submission
type SubmitResult struct {
	ActionID       types.ActionID
	RunID          types.RunID
	IdempotencyKey types.IdempotencyKey
	Duplicate      bool
	Queued         bool
}

// deriveKey builds the idempotency key for one logical execution
func deriveKey(actionID types.ActionID, dedupeToken string) types.IdempotencyKey {
	if dedupeToken == "" {
		return types.IdempotencyKey(actionID.String())
	}
	return types.IdempotencyKey(actionID.String() + ":" + dedupeToken)
}

// Submit records a logical action and its run in the ledger, then hands the
// job to the queue transport. The run row is written before any queue
// interaction so a crash in between leaves a recoverable record, not a
// silently lost job. With no transport attached the run stays pending and
// the key is still returned (degraded mode, not a failure).
func (uc *UseCases) Submit(ctx context.Context, input *SubmitInput) (*SubmitResult, error) {
	var action *model.Action
	if input.ActionID != "" {
		existing, err := uc.repo.Action().Get(ctx, input.ActionID)
		if err != nil {
			return nil, goerr.Wrap(ErrActionNotFound, "cannot resubmit action",
				goerr.V("action_id", input.ActionID))
		}
		action = existing
	} else {
		if !input.ActionType.IsValid() {
			return nil, goerr.Wrap(model.ErrInvalidActionType, "cannot submit action",
				goerr.V("action_type", input.ActionType))
		}
		action = &model.Action{
			ID:         types.NewActionID(),
			ActionType: input.ActionType,
			SiteID:     input.SiteID,
			OwnerToken: input.OwnerToken,
			Status:     types.ActionStatusQueued,
			Payload:    input.Payload,
		}
		if _, err := uc.repo.Action().Create(ctx, action); err != nil {
			return nil, goerr.Wrap(err, "failed to create action")
		}
	}

	key := deriveKey(action.ID, input.DedupeToken)

	policy := input.Policy
	policy.Environment = policy.Environment.Normalize()

	run := &model.Run{
		ID:             types.NewRunID(),
		ActionID:       action.ID,
		IdempotencyKey: key,
		Policy:         policy,
		Status:         types.RunStatusPending,
	}
	if _, err := uc.repo.Run().Create(ctx, run); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateKey) {
			existing, getErr := uc.repo.Run().GetByIdempotencyKey(ctx, key)
			if getErr != nil {
				return nil, goerr.Wrap(getErr, "failed to load run for duplicate key",
					goerr.V("idempotency_key", key))
			}
			return &SubmitResult{
				ActionID:       existing.ActionID,
				RunID:          existing.ID,
				IdempotencyKey: key,
				Duplicate:      true,
			}, nil
		}
		return nil, goerr.Wrap(err, "failed to create run", goerr.V("idempotency_key", key))
	}

	if err := uc.projector.ActionQueued(ctx, action.ID, run.ID); err != nil {
		return nil, err
	}

	result := &SubmitResult{
		ActionID:       action.ID,
		RunID:          run.ID,
		IdempotencyKey: key,
	}

	if uc.queues == nil {
		logging.From(ctx).Warn("queue transport unavailable, run recorded as pending",
			"action_id", action.ID.String(), "idempotency_key", key.String())
		return result, nil
	}

	enqueued, err := uc.queues.Enqueue(&queue.Job{
		Key:        key,
		ActionID:   action.ID,
		RunID:      run.ID,
		ActionType: action.ActionType,
	}, input.Priority, input.Delay)
	if err != nil {
		logging.From(ctx).Warn("failed to enqueue run, left pending for out-of-band execution",
			"action_id", action.ID.String(), "error", err.Error())
		return result, nil
	}

	result.Queued = enqueued
	return result, nil
}

// ResubmitRun re-enqueues a pending run, for out-of-band recovery after a
// crash between ledger write and enqueue
func (uc *UseCases) ResubmitRun(ctx context.Context, runID types.RunID) (bool, error) {
	if uc.queues == nil {
		return false, goerr.Wrap(ErrQueuesUnavailable, "cannot resubmit run")
	}

	run, err := uc.repo.Run().Get(ctx, runID)
	if err != nil {
		return false, goerr.Wrap(ErrRunNotFound, "cannot resubmit run", goerr.V("run_id", runID))
	}
	if run.Status != types.RunStatusPending {
		return false, goerr.New("only pending runs can be resubmitted",
			goerr.V("run_id", runID), goerr.V("status", run.Status))
	}

	action, err := uc.repo.Action().Get(ctx, run.ActionID)
	if err != nil {
		return false, goerr.Wrap(ErrActionNotFound, "cannot resubmit run", goerr.V("action_id", run.ActionID))
	}

	return uc.queues.Enqueue(&queue.Job{
		Key:        run.IdempotencyKey,
		ActionID:   action.ID,
		RunID:      run.ID,
		ActionType: action.ActionType,
	}, 0, 0)
}
