package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type runRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRunRepository(client *firestore.Client) *runRepository {
	return &runRepository{client: client}
}

func (r *runRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_runs"
	}
	return "runs"
}

func (r *runRepository) keyCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_run_keys"
	}
	return "run_keys"
}

// Create writes the run document and a key document in one transaction so the
// idempotency key stays globally unique even under concurrent submission.
func (r *runRepository) Create(ctx context.Context, run *model.Run) (*model.Run, error) {
	now := time.Now().UTC()
	created := *run
	created.CreatedAt = now
	created.UpdatedAt = now

	runRef := r.client.Collection(r.collection()).Doc(created.ID.String())
	keyRef := r.client.Collection(r.keyCollection()).Doc(created.IdempotencyKey.String())

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(keyRef); err == nil {
			return goerr.Wrap(ErrDuplicateKey, "run with idempotency key already exists",
				goerr.V("idempotency_key", created.IdempotencyKey))
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to check idempotency key")
		}

		if err := tx.Create(keyRef, map[string]any{"RunID": created.ID.String()}); err != nil {
			return goerr.Wrap(err, "failed to create idempotency key record")
		}
		if err := tx.Create(runRef, &created); err != nil {
			return goerr.Wrap(err, "failed to create run")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *runRepository) Get(ctx context.Context, id types.RunID) (*model.Run, error) {
	docSnap, err := r.client.Collection(r.collection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("id", id))
	}

	var run model.Run
	if err := docSnap.DataTo(&run); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run", goerr.V("id", id))
	}

	return &run, nil
}

func (r *runRepository) GetByIdempotencyKey(ctx context.Context, key types.IdempotencyKey) (*model.Run, error) {
	keySnap, err := r.client.Collection(r.keyCollection()).Doc(key.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("idempotency_key", key))
		}
		return nil, goerr.Wrap(err, "failed to get idempotency key record", goerr.V("idempotency_key", key))
	}

	runID, err := keySnap.DataAt("RunID")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read idempotency key record")
	}

	id, ok := runID.(string)
	if !ok {
		return nil, goerr.New("idempotency key record has no run ID", goerr.V("idempotency_key", key))
	}

	return r.Get(ctx, types.RunID(id))
}

func (r *runRepository) ListByAction(ctx context.Context, actionID types.ActionID) ([]*model.Run, error) {
	iter := r.client.Collection(r.collection()).
		Where("ActionID", "==", actionID.String()).
		Documents(ctx)
	defer iter.Stop()

	runs := make([]*model.Run, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate runs", goerr.V("actionID", actionID))
		}

		var run model.Run
		if err := docSnap.DataTo(&run); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run")
		}
		runs = append(runs, &run)
	}

	return runs, nil
}

func (r *runRepository) Update(ctx context.Context, run *model.Run) (*model.Run, error) {
	updated := *run
	updated.UpdatedAt = time.Now().UTC()

	docRef := r.client.Collection(r.collection()).Doc(updated.ID.String())
	if _, err := docRef.Set(ctx, &updated); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("id", updated.ID))
		}
		return nil, goerr.Wrap(err, "failed to update run", goerr.V("id", updated.ID))
	}

	return &updated, nil
}
