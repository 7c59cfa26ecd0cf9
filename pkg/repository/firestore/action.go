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

type actionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newActionRepository(client *firestore.Client) *actionRepository {
	return &actionRepository{client: client}
}

func (r *actionRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_actions"
	}
	return "actions"
}

func (r *actionRepository) Create(ctx context.Context, action *model.Action) (*model.Action, error) {
	now := time.Now().UTC()
	created := *action
	created.CreatedAt = now
	created.UpdatedAt = now

	docRef := r.client.Collection(r.collection()).Doc(created.ID.String())
	if _, err := docRef.Create(ctx, &created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrDuplicateKey, "action already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create action", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *actionRepository) Get(ctx context.Context, id types.ActionID) (*model.Action, error) {
	docSnap, err := r.client.Collection(r.collection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V("id", id))
	}

	var action model.Action
	if err := docSnap.DataTo(&action); err != nil {
		return nil, goerr.Wrap(err, "failed to decode action", goerr.V("id", id))
	}

	return &action, nil
}

func (r *actionRepository) List(ctx context.Context, siteID types.SiteID) ([]*model.Action, error) {
	iter := r.client.Collection(r.collection()).
		Where("SiteID", "==", siteID.String()).
		Documents(ctx)
	defer iter.Stop()

	actions := make([]*model.Action, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate actions", goerr.V("siteID", siteID))
		}

		var action model.Action
		if err := docSnap.DataTo(&action); err != nil {
			return nil, goerr.Wrap(err, "failed to decode action")
		}
		actions = append(actions, &action)
	}

	return actions, nil
}

func (r *actionRepository) UpdateStatus(ctx context.Context, id types.ActionID, actionStatus types.ActionStatus, lastError string) error {
	docRef := r.client.Collection(r.collection()).Doc(id.String())
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "Status", Value: actionStatus.String()},
		{Path: "LastError", Value: lastError},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to update action status", goerr.V("id", id))
	}

	return nil
}
