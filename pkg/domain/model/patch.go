package model

import (
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// Patch is a single concrete change produced by a run, e.g. "set meta
// description on URL X to value Y". Verification fields are mutated only by
// the verification engine via the status projector.
type Patch struct {
	ID          types.PatchID
	RunID       types.RunID
	ChangeType  types.ChangeType
	TargetURL   string
	Selector    string
	BeforeValue string
	AfterValue  string
	ApplyStatus types.ApplyStatus

	VerificationStatus  types.VerificationStatus
	VerificationDetails string

	CreatedAt time.Time
	UpdatedAt time.Time
}
