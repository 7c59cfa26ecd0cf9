package model

import (
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// Action represents a logical unit of work requested by a caller.
// The payload is opaque to the pipeline and immutable once a run exists;
// only the status projector mutates Status and LastError.
type Action struct {
	ID         types.ActionID
	ActionType types.ActionType
	SiteID     types.SiteID
	OwnerToken string
	Status     types.ActionStatus
	Payload    map[string]any
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the action for required fields
func (a *Action) Validate() error {
	if err := a.ID.Validate(); err != nil {
		return err
	}
	if !a.ActionType.IsValid() {
		return ErrInvalidActionType
	}
	if !a.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}
