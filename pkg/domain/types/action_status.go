package types

import "fmt"

// ActionStatus represents the lifecycle status of an Action
type ActionStatus string

const (
	ActionStatusQueued            ActionStatus = "queued"
	ActionStatusRunning           ActionStatus = "running"
	ActionStatusSucceeded         ActionStatus = "succeeded"
	ActionStatusNeedsVerification ActionStatus = "needs_verification"
	ActionStatusVerified          ActionStatus = "verified"
	ActionStatusPartial           ActionStatus = "partial"
	ActionStatusFailed            ActionStatus = "failed"
)

// AllActionStatuses returns all valid action statuses
func AllActionStatuses() []ActionStatus {
	return []ActionStatus{
		ActionStatusQueued,
		ActionStatusRunning,
		ActionStatusSucceeded,
		ActionStatusNeedsVerification,
		ActionStatusVerified,
		ActionStatusPartial,
		ActionStatusFailed,
	}
}

// IsValid checks if the action status is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusQueued,
		ActionStatusRunning,
		ActionStatusSucceeded,
		ActionStatusNeedsVerification,
		ActionStatusVerified,
		ActionStatusPartial,
		ActionStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is permitted.
// Partial is terminal for the pipeline but actionable by a human.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case ActionStatusVerified, ActionStatusPartial, ActionStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the transition s -> next is permitted.
// Transitions only move forward; terminal states admit nothing.
func (s ActionStatus) CanTransitionTo(next ActionStatus) bool {
	switch s {
	case ActionStatusQueued:
		return next == ActionStatusRunning
	case ActionStatusRunning:
		return next == ActionStatusSucceeded || next == ActionStatusFailed
	case ActionStatusSucceeded:
		return next == ActionStatusNeedsVerification
	case ActionStatusNeedsVerification:
		return next == ActionStatusVerified || next == ActionStatusPartial || next == ActionStatusFailed
	default:
		return false
	}
}

// String returns the string representation of the action status
func (s ActionStatus) String() string {
	return string(s)
}

// ParseActionStatus parses a string into an ActionStatus
func ParseActionStatus(s string) (ActionStatus, error) {
	status := ActionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid action status: %s", s)
	}
	return status, nil
}
