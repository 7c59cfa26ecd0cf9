package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type eventRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newEventRepository(client *firestore.Client) *eventRepository {
	return &eventRepository{client: client}
}

func (r *eventRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_events"
	}
	return "events"
}

func (r *eventRepository) Append(ctx context.Context, event *model.Event) (*model.Event, error) {
	created := *event
	created.CreatedAt = time.Now().UTC()

	docRef := r.client.Collection(r.collection()).Doc(created.ID.String())
	if _, err := docRef.Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to append event", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *eventRepository) ListByAction(ctx context.Context, actionID types.ActionID) ([]*model.Event, error) {
	iter := r.client.Collection(r.collection()).
		Where("ActionID", "==", actionID.String()).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	events := make([]*model.Event, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate events", goerr.V("actionID", actionID))
		}

		var event model.Event
		if err := docSnap.DataTo(&event); err != nil {
			return nil, goerr.Wrap(err, "failed to decode event")
		}
		events = append(events, &event)
	}

	return events, nil
}
