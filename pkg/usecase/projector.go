package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/notify"
	"github.com/sitefix-lab/sitefix/pkg/utils/async"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

// Projector is the only component permitted to write Action.Status,
// Run.Status and Patch verification state. Centralizing writes here keeps
// two components from racing to set contradictory states for one entity.
type Projector struct {
	repo     interfaces.Repository
	notifier notify.Service
}

func NewProjector(repo interfaces.Repository, notifier notify.Service) *Projector {
	return &Projector{repo: repo, notifier: notifier}
}

// transition validates and applies a forward-only action status change
func (p *Projector) transition(ctx context.Context, actionID types.ActionID, next types.ActionStatus, lastError string) error {
	action, err := p.repo.Action().Get(ctx, actionID)
	if err != nil {
		return goerr.Wrap(err, "failed to load action for transition", goerr.V("action_id", actionID))
	}

	if !action.Status.CanTransitionTo(next) {
		return goerr.Wrap(ErrInvalidTransition, "action status transition rejected",
			goerr.V("action_id", actionID),
			goerr.V("from", action.Status),
			goerr.V("to", next),
		)
	}

	return p.repo.Action().UpdateStatus(ctx, actionID, next, lastError)
}

func (p *Projector) emit(ctx context.Context, kind model.EventKind, actionID types.ActionID, runID types.RunID, data map[string]any) {
	event := &model.Event{
		ID:       types.NewEventID(),
		Kind:     kind,
		ActionID: actionID,
		RunID:    runID,
		Data:     data,
	}

	if _, err := p.repo.Event().Append(ctx, event); err != nil {
		// The event log is an audit aid; a write failure must not fail the
		// transition it records.
		logging.From(ctx).Error("failed to append event",
			"kind", string(kind), "action_id", actionID.String(), "error", err.Error())
	}

	if p.notifier != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return p.notifier.Notify(ctx, event)
		})
	}
}

// ActionQueued marks a freshly submitted action as queued
func (p *Projector) ActionQueued(ctx context.Context, actionID types.ActionID, runID types.RunID) error {
	action, err := p.repo.Action().Get(ctx, actionID)
	if err != nil {
		return goerr.Wrap(err, "failed to load action", goerr.V("action_id", actionID))
	}
	if action.Status != types.ActionStatusQueued {
		if err := p.transition(ctx, actionID, types.ActionStatusQueued, ""); err != nil {
			return err
		}
	}

	p.emit(ctx, model.EventActionQueued, actionID, runID, nil)
	return nil
}

// RunStarted marks a run and its action as running. It is idempotent so a
// retried attempt does not trip the forward-only state machine.
func (p *Projector) RunStarted(ctx context.Context, runID types.RunID) error {
	run, err := p.repo.Run().Get(ctx, runID)
	if err != nil {
		return goerr.Wrap(err, "failed to load run", goerr.V("run_id", runID))
	}
	if run.Status == types.RunStatusRunning {
		return nil
	}

	run.Status = types.RunStatusRunning
	run.StartedAt = time.Now().UTC()
	if _, err := p.repo.Run().Update(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to mark run running", goerr.V("run_id", runID))
	}

	if err := p.transition(ctx, run.ActionID, types.ActionStatusRunning, ""); err != nil {
		return err
	}

	p.emit(ctx, model.EventRunStarted, run.ActionID, runID, nil)
	return nil
}

// RunSucceeded marks the run succeeded and moves the action straight to
// needs_verification; verification is decoupled so a slow live-site check
// never blocks the worker slot.
func (p *Projector) RunSucceeded(ctx context.Context, runID types.RunID, stats model.RunStats, output map[string]any) error {
	run, err := p.repo.Run().Get(ctx, runID)
	if err != nil {
		return goerr.Wrap(err, "failed to load run", goerr.V("run_id", runID))
	}

	run.Status = types.RunStatusSucceeded
	run.Stats = stats
	run.OutputData = output
	run.CompletedAt = time.Now().UTC()
	if _, err := p.repo.Run().Update(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to mark run succeeded", goerr.V("run_id", runID))
	}

	if err := p.transition(ctx, run.ActionID, types.ActionStatusSucceeded, ""); err != nil {
		return err
	}
	if err := p.transition(ctx, run.ActionID, types.ActionStatusNeedsVerification, ""); err != nil {
		return err
	}

	p.emit(ctx, model.EventRunSucceeded, run.ActionID, runID, nil)
	return nil
}

// RunFailed marks the run and its action failed after the retry budget is
// exhausted
func (p *Projector) RunFailed(ctx context.Context, runID types.RunID, execErr error) error {
	run, err := p.repo.Run().Get(ctx, runID)
	if err != nil {
		return goerr.Wrap(err, "failed to load run", goerr.V("run_id", runID))
	}

	run.Status = types.RunStatusFailed
	run.ErrorDetails = execErr.Error()
	run.CompletedAt = time.Now().UTC()
	if _, err := p.repo.Run().Update(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to mark run failed", goerr.V("run_id", runID))
	}

	if err := p.transition(ctx, run.ActionID, types.ActionStatusFailed, execErr.Error()); err != nil {
		return err
	}

	p.emit(ctx, model.EventRunFailed, run.ActionID, runID, map[string]any{
		"error": execErr.Error(),
	})
	return nil
}

// ApplyVerification persists an aggregated verification result onto the
// action, run and patches. The partial distinction survives on the run and
// patches; the action field only distinguishes verified from not.
func (p *Projector) ApplyVerification(ctx context.Context, result *model.VerificationResult) error {
	run, err := p.repo.Run().Get(ctx, result.RunID)
	if err != nil {
		return goerr.Wrap(err, "failed to load run", goerr.V("run_id", result.RunID))
	}

	run.VerificationStatus = result.OverallStatus
	run.VerificationSummary = result.Summary
	if _, err := p.repo.Run().Update(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to persist run verification", goerr.V("run_id", result.RunID))
	}

	patches, err := p.repo.Patch().ListByRun(ctx, result.RunID)
	if err != nil {
		return goerr.Wrap(err, "failed to list patches", goerr.V("run_id", result.RunID))
	}
	for _, patch := range patches {
		status, details := patchVerdict(result, patch.ID)
		if err := p.repo.Patch().UpdateVerification(ctx, patch.ID, status, details); err != nil {
			return goerr.Wrap(err, "failed to persist patch verification", goerr.V("patch_id", patch.ID))
		}
	}

	actionStatus := types.ActionStatusFailed
	eventKind := model.EventActionFailed
	switch result.OverallStatus {
	case types.VerificationStatusVerified:
		actionStatus = types.ActionStatusVerified
		eventKind = model.EventActionVerified
	case types.VerificationStatusPartial:
		eventKind = model.EventActionPartial
	}

	if err := p.transition(ctx, result.ActionID, actionStatus, result.Summary); err != nil {
		return err
	}

	p.emit(ctx, eventKind, result.ActionID, result.RunID, map[string]any{
		"summary":        result.Summary,
		"overall_status": result.OverallStatus.String(),
		"total_checks":   result.TotalChecks,
		"passed_checks":  result.PassedChecks,
		"failed_checks":  result.FailedChecks,
		"checks":         checksToData(result.Checks),
	})
	return nil
}

// patchVerdict derives one patch's verification status from the checks
// recorded against it. Patches without dedicated checks (run-level
// strategies such as the content existence check) inherit the overall status.
func patchVerdict(result *model.VerificationResult, patchID types.PatchID) (types.VerificationStatus, string) {
	checks := result.ChecksForPatch(patchID)
	if len(checks) == 0 {
		return result.OverallStatus, result.Summary
	}

	passed, failed := 0, 0
	details := ""
	for _, c := range checks {
		if c.Passed {
			passed++
		} else {
			failed++
			if details == "" {
				details = c.Error
				if details == "" {
					details = "expected " + c.ExpectedResult + ", observed " + c.ActualResult
				}
			}
		}
	}

	switch {
	case failed == 0:
		return types.VerificationStatusVerified, "all checks passed"
	case passed == 0:
		return types.VerificationStatusFailed, details
	default:
		return types.VerificationStatusPartial, details
	}
}

func checksToData(checks []model.VerificationCheck) []map[string]any {
	out := make([]map[string]any, 0, len(checks))
	for _, c := range checks {
		out = append(out, map[string]any{
			"check_type": c.CheckType.String(),
			"target_url": c.TargetURL,
			"expected":   c.ExpectedResult,
			"actual":     c.ActualResult,
			"passed":     c.Passed,
			"error":      c.Error,
		})
	}
	return out
}
