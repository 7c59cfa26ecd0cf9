package types

import "fmt"

// ApplyStatus represents whether a patch was applied to the target
type ApplyStatus string

const (
	ApplyStatusPending ApplyStatus = "pending"
	ApplyStatusApplied ApplyStatus = "applied"
	ApplyStatusFailed  ApplyStatus = "failed"
	ApplyStatusSkipped ApplyStatus = "skipped"
)

// AllApplyStatuses returns all valid apply statuses
func AllApplyStatuses() []ApplyStatus {
	return []ApplyStatus{
		ApplyStatusPending,
		ApplyStatusApplied,
		ApplyStatusFailed,
		ApplyStatusSkipped,
	}
}

// IsValid checks if the apply status is valid
func (s ApplyStatus) IsValid() bool {
	switch s {
	case ApplyStatusPending, ApplyStatusApplied, ApplyStatusFailed, ApplyStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of the apply status
func (s ApplyStatus) String() string {
	return string(s)
}

// ParseApplyStatus parses a string into an ApplyStatus
func ParseApplyStatus(s string) (ApplyStatus, error) {
	status := ApplyStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid apply status: %s", s)
	}
	return status, nil
}
