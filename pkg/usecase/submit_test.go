package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/repository/memory"
	"github.com/sitefix-lab/sitefix/pkg/usecase"
)

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("submission records action, run and event", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		result, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionType: types.ActionTypeTechnicalSEOFix,
			SiteID:     "site-1",
			Payload:    map[string]any{"patches": []any{}},
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Duplicate).False()
		gt.Bool(t, result.Queued).False() // no queue transport attached

		action, err := repo.Action().Get(ctx, result.ActionID)
		gt.NoError(t, err).Required()
		gt.Value(t, action.Status).Equal(types.ActionStatusQueued)

		run, err := repo.Run().Get(ctx, result.RunID)
		gt.NoError(t, err).Required()
		gt.Value(t, run.Status).Equal(types.RunStatusPending)
		gt.Value(t, run.Policy.Environment).Equal(types.EnvironmentProduction)

		events, err := repo.Event().ListByAction(ctx, result.ActionID)
		gt.NoError(t, err).Required()
		gt.Array(t, events).Length(1)
		gt.Value(t, events[0].Kind).Equal(model.EventActionQueued)
	})

	t.Run("invalid action type is rejected", func(t *testing.T) {
		uc := usecase.New(memory.New())

		_, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionType: types.ActionType("definitely_not_a_type"),
		})
		gt.Value(t, err).NotNil()
	})

	t.Run("resubmitting the same key yields one run", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		first, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionType:  types.ActionTypeGeneric,
			DedupeToken: "batch-7",
		})
		gt.NoError(t, err).Required()

		second, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionID:    first.ActionID,
			DedupeToken: "batch-7",
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, second.Duplicate).True()
		gt.Value(t, second.RunID).Equal(first.RunID)
		gt.Value(t, second.IdempotencyKey).Equal(first.IdempotencyKey)

		runs, err := repo.Run().ListByAction(ctx, first.ActionID)
		gt.NoError(t, err).Required()
		gt.Array(t, runs).Length(1)
	})

	t.Run("a fresh dedupe token creates a second run", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		first, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionType:  types.ActionTypeGeneric,
			DedupeToken: "attempt-1",
		})
		gt.NoError(t, err).Required()

		second, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionID:    first.ActionID,
			DedupeToken: "attempt-2",
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, second.Duplicate).False()
		gt.Value(t, second.RunID).NotEqual(first.RunID)

		runs, err := repo.Run().ListByAction(ctx, first.ActionID)
		gt.NoError(t, err).Required()
		gt.Array(t, runs).Length(2)
	})

	t.Run("dry run environment survives on the run policy", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		result, err := uc.Submit(ctx, &usecase.SubmitInput{
			ActionType: types.ActionTypeGeneric,
			Policy:     model.RunPolicy{Environment: types.EnvironmentDryRun},
		})
		gt.NoError(t, err).Required()

		run, err := repo.Run().Get(ctx, result.RunID)
		gt.NoError(t, err).Required()
		gt.Value(t, run.Policy.Environment).Equal(types.EnvironmentDryRun)
	})
}
