package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

type runRepository struct {
	mu    sync.RWMutex
	runs  map[types.RunID]*model.Run
	byKey map[types.IdempotencyKey]types.RunID
}

func newRunRepository() *runRepository {
	return &runRepository{
		runs:  make(map[types.RunID]*model.Run),
		byKey: make(map[types.IdempotencyKey]types.RunID),
	}
}

// copyRun creates a deep copy of a run
func copyRun(r *model.Run) *model.Run {
	output := make(map[string]any, len(r.OutputData))
	for k, v := range r.OutputData {
		output[k] = v
	}

	copied := *r
	copied.OutputData = output
	return &copied
}

func (r *runRepository) Create(ctx context.Context, run *model.Run) (*model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[run.IdempotencyKey]; exists {
		return nil, goerr.Wrap(ErrDuplicateKey, "run with idempotency key already exists",
			goerr.V("idempotency_key", run.IdempotencyKey))
	}
	if _, exists := r.runs[run.ID]; exists {
		return nil, goerr.Wrap(ErrDuplicateKey, "run already exists", goerr.V("id", run.ID))
	}

	now := time.Now().UTC()
	created := copyRun(run)
	created.CreatedAt = now
	created.UpdatedAt = now

	r.runs[created.ID] = created
	r.byKey[created.IdempotencyKey] = created.ID
	return copyRun(created), nil
}

func (r *runRepository) Get(ctx context.Context, id types.RunID) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("id", id))
	}

	return copyRun(run), nil
}

func (r *runRepository) GetByIdempotencyKey(ctx context.Context, key types.IdempotencyKey) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byKey[key]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("idempotency_key", key))
	}

	return copyRun(r.runs[id]), nil
}

func (r *runRepository) ListByAction(ctx context.Context, actionID types.ActionID) ([]*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*model.Run, 0)
	for _, run := range r.runs {
		if run.ActionID == actionID {
			runs = append(runs, copyRun(run))
		}
	}

	return runs, nil
}

func (r *runRepository) Update(ctx context.Context, run *model.Run) (*model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.runs[run.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("id", run.ID))
	}

	updated := copyRun(run)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.runs[updated.ID] = updated
	return copyRun(updated), nil
}
