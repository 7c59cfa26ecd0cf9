package model

import (
	"fmt"
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// VerificationCheck is one concrete assertion against the live target.
// Checks are transient; they are persisted only as part of the aggregated
// result on the event log.
type VerificationCheck struct {
	CheckType      types.CheckType
	PatchID        types.PatchID
	TargetURL      string
	ExpectedResult string
	ActualResult   string
	Passed         bool
	Error          string
	Timestamp      time.Time
}

// VerificationResult aggregates all checks of one verification pass
type VerificationResult struct {
	ActionID      types.ActionID
	RunID         types.RunID
	Checks        []VerificationCheck
	TotalChecks   int
	PassedChecks  int
	FailedChecks  int
	OverallStatus types.VerificationStatus
	Summary       string
	VerifiedAt    time.Time
}

// AddCheck appends a check and updates the counters
func (r *VerificationResult) AddCheck(check VerificationCheck) {
	r.Checks = append(r.Checks, check)
	r.TotalChecks++
	if check.Passed {
		r.PassedChecks++
	} else {
		r.FailedChecks++
	}
}

// Aggregate derives the overall status and summary from the recorded checks.
// verified iff zero failed checks and at least one check; failed iff zero
// passed checks (including the zero-checks case, so "could not verify" never
// reads as success); partial otherwise.
func (r *VerificationResult) Aggregate() {
	switch {
	case r.TotalChecks == 0:
		r.OverallStatus = types.VerificationStatusFailed
		r.Summary = "no checks performed - verification failed"
	case r.FailedChecks == 0:
		r.OverallStatus = types.VerificationStatusVerified
		r.Summary = fmt.Sprintf("%d checks passed - verified", r.PassedChecks)
	case r.PassedChecks == 0:
		r.OverallStatus = types.VerificationStatusFailed
		r.Summary = fmt.Sprintf("%d checks failed - verification failed", r.FailedChecks)
	default:
		r.OverallStatus = types.VerificationStatusPartial
		r.Summary = fmt.Sprintf("%d checks passed, %d failed - partial success",
			r.PassedChecks, r.FailedChecks)
	}
}

// ChecksForPatch returns the checks recorded for one patch
func (r *VerificationResult) ChecksForPatch(patchID types.PatchID) []VerificationCheck {
	var checks []VerificationCheck
	for _, c := range r.Checks {
		if c.PatchID == patchID {
			checks = append(checks, c)
		}
	}
	return checks
}
