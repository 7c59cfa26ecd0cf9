package model

import (
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// EventKind classifies entries of the append-only event log
type EventKind string

const (
	EventActionQueued   EventKind = "action.queued"
	EventRunStarted     EventKind = "run.started"
	EventRunSucceeded   EventKind = "run.succeeded"
	EventRunFailed      EventKind = "run.failed"
	EventActionVerified EventKind = "action.verified"
	EventActionPartial  EventKind = "action.partial"
	EventActionFailed   EventKind = "action.failed"
)

// Event is one append-only audit record emitted by the status projector
type Event struct {
	ID        types.EventID
	Kind      EventKind
	ActionID  types.ActionID
	RunID     types.RunID
	Data      map[string]any
	CreatedAt time.Time
}
