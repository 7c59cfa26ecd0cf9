package interfaces

import (
	"context"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// PatchRepository defines the interface for Patch data access
type PatchRepository interface {
	// Create creates a new patch
	Create(ctx context.Context, patch *model.Patch) (*model.Patch, error)

	// Get retrieves a patch by ID
	Get(ctx context.Context, id types.PatchID) (*model.Patch, error)

	// ListByRun retrieves all patches produced by a run
	ListByRun(ctx context.Context, runID types.RunID) ([]*model.Patch, error)

	// UpdateVerification sets the verification status and details of a patch.
	// Re-verification overwrites the previous outcome.
	UpdateVerification(ctx context.Context, id types.PatchID, status types.VerificationStatus, details string) error
}
