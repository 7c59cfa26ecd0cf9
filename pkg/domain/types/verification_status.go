package types

import "fmt"

// VerificationStatus represents the outcome of a verification pass for one patch
type VerificationStatus string

const (
	VerificationStatusUnverified VerificationStatus = "unverified"
	VerificationStatusVerified   VerificationStatus = "verified"
	VerificationStatusPartial    VerificationStatus = "partial"
	VerificationStatusFailed     VerificationStatus = "failed"
)

// AllVerificationStatuses returns all valid verification statuses
func AllVerificationStatuses() []VerificationStatus {
	return []VerificationStatus{
		VerificationStatusUnverified,
		VerificationStatusVerified,
		VerificationStatusPartial,
		VerificationStatusFailed,
	}
}

// IsValid checks if the verification status is valid
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationStatusUnverified, VerificationStatusVerified,
		VerificationStatusPartial, VerificationStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the verification status
func (s VerificationStatus) String() string {
	return string(s)
}

// ParseVerificationStatus parses a string into a VerificationStatus
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	status := VerificationStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid verification status: %s", s)
	}
	return status, nil
}
