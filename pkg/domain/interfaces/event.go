package interfaces

import (
	"context"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// EventRepository defines the interface for the append-only event log
type EventRepository interface {
	// Append records a new event. Events are never updated or deleted.
	Append(ctx context.Context, event *model.Event) (*model.Event, error)

	// ListByAction retrieves all events of an action, oldest first
	ListByAction(ctx context.Context, actionID types.ActionID) ([]*model.Event, error)
}
