package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ActionID identifies a logical unit of requested work
type ActionID string

// RunID identifies one execution attempt of an Action
type RunID string

// PatchID identifies one concrete change produced by a Run
type PatchID string

// EventID identifies one entry of the append-only event log
type EventID string

// SiteID identifies the site an action targets
type SiteID string

// IdempotencyKey ensures re-submission of the same logical action does not duplicate work
type IdempotencyKey string

// NewActionID generates a new random ActionID
func NewActionID() ActionID {
	return ActionID(uuid.NewString())
}

// NewRunID generates a new random RunID
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// NewPatchID generates a new random PatchID
func NewPatchID() PatchID {
	return PatchID(uuid.NewString())
}

// NewEventID generates a new random EventID
func NewEventID() EventID {
	return EventID(uuid.NewString())
}

func (x ActionID) String() string       { return string(x) }
func (x RunID) String() string          { return string(x) }
func (x PatchID) String() string        { return string(x) }
func (x EventID) String() string        { return string(x) }
func (x SiteID) String() string         { return string(x) }
func (x IdempotencyKey) String() string { return string(x) }

// Validate checks if the ActionID is non-empty
func (x ActionID) Validate() error {
	if x == "" {
		return goerr.New("action ID is empty")
	}
	return nil
}

// Validate checks if the RunID is non-empty
func (x RunID) Validate() error {
	if x == "" {
		return goerr.New("run ID is empty")
	}
	return nil
}

// Validate checks if the IdempotencyKey is non-empty
func (x IdempotencyKey) Validate() error {
	if x == "" {
		return goerr.New("idempotency key is empty")
	}
	return nil
}
