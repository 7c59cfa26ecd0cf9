package interfaces

import (
	"context"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// ActionRepository defines the interface for Action data access
type ActionRepository interface {
	// Create creates a new action
	Create(ctx context.Context, action *model.Action) (*model.Action, error)

	// Get retrieves an action by ID
	Get(ctx context.Context, id types.ActionID) (*model.Action, error)

	// List retrieves all actions for a site
	List(ctx context.Context, siteID types.SiteID) ([]*model.Action, error)

	// UpdateStatus sets the action status and last error. Actions are never
	// deleted; the ledger is an audit trail.
	UpdateStatus(ctx context.Context, id types.ActionID, status types.ActionStatus, lastError string) error
}
