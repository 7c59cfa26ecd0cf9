package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

func TestActionStatusTransitions(t *testing.T) {
	allowed := map[types.ActionStatus][]types.ActionStatus{
		types.ActionStatusQueued:  {types.ActionStatusRunning},
		types.ActionStatusRunning: {types.ActionStatusSucceeded, types.ActionStatusFailed},
		types.ActionStatusSucceeded: {
			types.ActionStatusNeedsVerification,
		},
		types.ActionStatusNeedsVerification: {
			types.ActionStatusVerified,
			types.ActionStatusPartial,
			types.ActionStatusFailed,
		},
		types.ActionStatusVerified: {},
		types.ActionStatusPartial:  {},
		types.ActionStatusFailed:   {},
	}

	t.Run("every status pair matches the transition table", func(t *testing.T) {
		for _, from := range types.AllActionStatuses() {
			permitted := map[types.ActionStatus]bool{}
			for _, next := range allowed[from] {
				permitted[next] = true
			}

			for _, to := range types.AllActionStatuses() {
				got := from.CanTransitionTo(to)
				if got != permitted[to] {
					t.Errorf("transition %s -> %s: got %v, want %v", from, to, got, permitted[to])
				}
			}
		}
	})

	t.Run("terminal statuses admit no transition", func(t *testing.T) {
		for _, from := range types.AllActionStatuses() {
			if !from.IsTerminal() {
				continue
			}
			for _, to := range types.AllActionStatuses() {
				gt.Bool(t, from.CanTransitionTo(to)).False()
			}
		}
	})

	t.Run("no transition targets an earlier lifecycle stage", func(t *testing.T) {
		order := map[types.ActionStatus]int{
			types.ActionStatusQueued:            0,
			types.ActionStatusRunning:           1,
			types.ActionStatusSucceeded:         2,
			types.ActionStatusNeedsVerification: 3,
			types.ActionStatusVerified:          4,
			types.ActionStatusPartial:           4,
			types.ActionStatusFailed:            4,
		}

		for _, from := range types.AllActionStatuses() {
			for _, to := range types.AllActionStatuses() {
				if from.CanTransitionTo(to) {
					gt.Bool(t, order[to] > order[from]).True()
				}
			}
		}
	})

	t.Run("self transition is never permitted", func(t *testing.T) {
		for _, s := range types.AllActionStatuses() {
			gt.Bool(t, s.CanTransitionTo(s)).False()
		}
	})
}

func TestActionTypeQueueRouting(t *testing.T) {
	for _, at := range types.AllActionTypes() {
		gt.Bool(t, at.Queue().IsValid()).True()
	}

	gt.Value(t, types.ActionTypeContentGeneration.Queue()).Equal(types.QueueContent)
	gt.Value(t, types.ActionTypeTechnicalSEOFix.Queue()).Equal(types.QueueTechnicalSEO)
	gt.Value(t, types.ActionTypeSchemaInjection.Queue()).Equal(types.QueueTechnicalSEO)
	gt.Value(t, types.ActionTypeCMSPublishing.Queue()).Equal(types.QueuePublishing)
	gt.Value(t, types.ActionTypeVerification.Queue()).Equal(types.QueueVerification)
	gt.Value(t, types.ActionTypeGeneric.Queue()).Equal(types.QueueGeneral)
}

func TestEnvironmentNormalize(t *testing.T) {
	gt.Value(t, types.Environment("").Normalize()).Equal(types.EnvironmentProduction)
	gt.Value(t, types.EnvironmentDryRun.Normalize()).Equal(types.EnvironmentDryRun)
	gt.Bool(t, types.Environment("prod").IsValid()).False()
}
