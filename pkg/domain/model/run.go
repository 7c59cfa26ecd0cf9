package model

import (
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// RunPolicy controls how one execution attempt behaves
type RunPolicy struct {
	Environment      types.Environment
	MaxPages         int
	MaxPatches       int
	RequiresApproval bool
}

// RunStats records observable facts about one execution attempt
type RunStats struct {
	Duration         time.Duration
	ResourcesTouched int
	PatchesProduced  int
}

// Run is one execution attempt ledger entry bound 1:1 to an idempotency key
type Run struct {
	ID             types.RunID
	ActionID       types.ActionID
	IdempotencyKey types.IdempotencyKey
	Policy         RunPolicy
	Status         types.RunStatus
	Stats          RunStats
	OutputData     map[string]any
	ErrorDetails   string

	// Verification outcome, written only by the status projector after a
	// verification pass. Empty until the run is verified.
	VerificationStatus  types.VerificationStatus
	VerificationSummary string

	StartedAt   time.Time
	CompletedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
