package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/sitefix-lab/sitefix/pkg/usecase"
	"github.com/sitefix-lab/sitefix/pkg/utils/errutil"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

// Enqueuer is the slice of the queue manager the registry needs to chain
// verification jobs
type Enqueuer interface {
	Enqueue(job *queue.Job, priority int, delay time.Duration) (bool, error)
}

// Registry executes queued jobs. It owns the per-action-type handlers and the
// lifecycle reporting around them; all state writes go through the projector.
type Registry struct {
	repo      interfaces.Repository
	projector *usecase.Projector
	verifier  *usecase.Verifier
	generator interfaces.ContentGenerator
	publisher interfaces.Publisher
	fetcher   interfaces.LiveFetcher
	inspector interfaces.Inspector
	enqueuer  Enqueuer
}

// handlerOutput is what one successful handler invocation produced
type handlerOutput struct {
	resourcesTouched int
	patchesProduced  int
	data             map[string]any
}

func NewRegistry(repo interfaces.Repository, projector *usecase.Projector, verifier *usecase.Verifier, generator interfaces.ContentGenerator, publisher interfaces.Publisher, fetcher interfaces.LiveFetcher, inspector interfaces.Inspector) *Registry {
	return &Registry{
		repo:      repo,
		projector: projector,
		verifier:  verifier,
		generator: generator,
		publisher: publisher,
		fetcher:   fetcher,
		inspector: inspector,
	}
}

// SetEnqueuer binds the queue manager after construction. The registry and
// the manager reference each other, so one side has to bind late.
func (r *Registry) SetEnqueuer(enqueuer Enqueuer) {
	r.enqueuer = enqueuer
}

// Execute runs one attempt of a queued job. Returning an error lets the queue
// retry within its attempt budget; only the terminal outcome reaches OnDone.
func (r *Registry) Execute(ctx context.Context, job *queue.Job) error {
	if job.ActionType == types.ActionTypeVerification {
		_, err := r.verifier.Verify(ctx, job.ActionID, job.RunID)
		return err
	}

	action, err := r.repo.Action().Get(ctx, job.ActionID)
	if err != nil {
		return goerr.Wrap(err, "failed to load action", goerr.V("action_id", job.ActionID))
	}
	run, err := r.repo.Run().Get(ctx, job.RunID)
	if err != nil {
		return goerr.Wrap(err, "failed to load run", goerr.V("run_id", job.RunID))
	}

	if err := r.projector.RunStarted(ctx, run.ID); err != nil {
		return err
	}

	started := time.Now()
	out, err := r.dispatch(ctx, action, run, job)
	if err != nil {
		return err
	}

	stats := model.RunStats{
		Duration:         time.Since(started),
		ResourcesTouched: out.resourcesTouched,
		PatchesProduced:  out.patchesProduced,
	}
	if err := r.projector.RunSucceeded(ctx, run.ID, stats, out.data); err != nil {
		return err
	}

	r.chainVerification(ctx, job)
	return nil
}

// dispatch routes to the handler of the action type. Dry runs short-circuit
// before any handler side effect.
func (r *Registry) dispatch(ctx context.Context, action *model.Action, run *model.Run, job *queue.Job) (*handlerOutput, error) {
	if run.Policy.Environment == types.EnvironmentDryRun {
		logging.From(ctx).Info("dry run, skipping execution",
			"action_id", action.ID.String(), "action_type", action.ActionType.String())
		return &handlerOutput{data: map[string]any{"dry_run": true}}, nil
	}

	switch action.ActionType {
	case types.ActionTypeContentGeneration:
		return r.handleContentGeneration(ctx, action, run, job)
	case types.ActionTypeTechnicalSEOFix, types.ActionTypeSchemaInjection:
		return r.handlePatchApplication(ctx, action, run, job)
	case types.ActionTypeCMSPublishing:
		return r.handlePublishing(ctx, action, run, job)
	case types.ActionTypeTechnicalSEOCrawl:
		return r.handleCrawl(ctx, action, run, job)
	default:
		return r.handleGeneric(ctx, action, run, job)
	}
}

// chainVerification enqueues the follow-up verification job. The chained key
// derives from the run key so re-verification of one run dedupes naturally.
func (r *Registry) chainVerification(ctx context.Context, job *queue.Job) {
	if r.enqueuer == nil {
		logging.From(ctx).Warn("no enqueuer bound, skipping verification chain",
			"action_id", job.ActionID.String())
		return
	}

	if _, err := r.enqueuer.Enqueue(&queue.Job{
		Key:        job.Key + ":verify",
		ActionID:   job.ActionID,
		RunID:      job.RunID,
		ActionType: types.ActionTypeVerification,
	}, 0, 0); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "verification chain",
			goerr.V("action_id", job.ActionID)), "failed to chain verification job")
	}
}

// OnDone observes terminal job outcomes. A failed execution job marks its run
// failed; a failed verification job is logged only, leaving the action in
// needs_verification for manual re-verification.
func (r *Registry) OnDone(ctx context.Context, job *queue.Job, execErr error) {
	if execErr == nil {
		return
	}

	if job.ActionType == types.ActionTypeVerification {
		_ = errutil.Handle(ctx, goerr.Wrap(execErr, "verification job",
			goerr.V("action_id", job.ActionID), goerr.V("run_id", job.RunID)),
			"verification job exhausted retries")
		return
	}

	if err := r.projector.RunFailed(ctx, job.RunID, execErr); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "record run failure",
			goerr.V("run_id", job.RunID)), "failed to record run failure")
	}
}
