package interfaces

import (
	"context"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// RunRepository defines the interface for Run data access
type RunRepository interface {
	// Create creates a new run. It fails with ErrDuplicateKey when a run with
	// the same idempotency key already exists.
	Create(ctx context.Context, run *model.Run) (*model.Run, error)

	// Get retrieves a run by ID
	Get(ctx context.Context, id types.RunID) (*model.Run, error)

	// GetByIdempotencyKey retrieves the run bound to an idempotency key
	GetByIdempotencyKey(ctx context.Context, key types.IdempotencyKey) (*model.Run, error)

	// ListByAction retrieves all runs of an action
	ListByAction(ctx context.Context, actionID types.ActionID) ([]*model.Run, error)

	// Update replaces the mutable fields of an existing run
	Update(ctx context.Context, run *model.Run) (*model.Run, error)
}
