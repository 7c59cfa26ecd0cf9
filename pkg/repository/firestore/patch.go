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

type patchRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newPatchRepository(client *firestore.Client) *patchRepository {
	return &patchRepository{client: client}
}

func (r *patchRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_patches"
	}
	return "patches"
}

func (r *patchRepository) Create(ctx context.Context, patch *model.Patch) (*model.Patch, error) {
	now := time.Now().UTC()
	created := *patch
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.VerificationStatus == "" {
		created.VerificationStatus = types.VerificationStatusUnverified
	}

	docRef := r.client.Collection(r.collection()).Doc(created.ID.String())
	if _, err := docRef.Create(ctx, &created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrDuplicateKey, "patch already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create patch", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *patchRepository) Get(ctx context.Context, id types.PatchID) (*model.Patch, error) {
	docSnap, err := r.client.Collection(r.collection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "patch not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get patch", goerr.V("id", id))
	}

	var patch model.Patch
	if err := docSnap.DataTo(&patch); err != nil {
		return nil, goerr.Wrap(err, "failed to decode patch", goerr.V("id", id))
	}

	return &patch, nil
}

func (r *patchRepository) ListByRun(ctx context.Context, runID types.RunID) ([]*model.Patch, error) {
	iter := r.client.Collection(r.collection()).
		Where("RunID", "==", runID.String()).
		Documents(ctx)
	defer iter.Stop()

	patches := make([]*model.Patch, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate patches", goerr.V("runID", runID))
		}

		var patch model.Patch
		if err := docSnap.DataTo(&patch); err != nil {
			return nil, goerr.Wrap(err, "failed to decode patch")
		}
		patches = append(patches, &patch)
	}

	return patches, nil
}

func (r *patchRepository) UpdateVerification(ctx context.Context, id types.PatchID, verificationStatus types.VerificationStatus, details string) error {
	docRef := r.client.Collection(r.collection()).Doc(id.String())
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "VerificationStatus", Value: verificationStatus.String()},
		{Path: "VerificationDetails", Value: details},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "patch not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to update patch verification", goerr.V("id", id))
	}

	return nil
}
