package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
)

// Firestore is the production repository backend
type Firestore struct {
	client     *firestore.Client
	action     *actionRepository
	run        *runRepository
	patch      *patchRepository
	event      *eventRepository
	inspection *inspectionRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes all collection names, for shared projects
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.action.collectionPrefix = prefix
		f.run.collectionPrefix = prefix
		f.patch.collectionPrefix = prefix
		f.event.collectionPrefix = prefix
		f.inspection.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	f := &Firestore{
		client:     client,
		action:     newActionRepository(client),
		run:        newRunRepository(client),
		patch:      newPatchRepository(client),
		event:      newEventRepository(client),
		inspection: newInspectionRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Action() interfaces.ActionRepository {
	return f.action
}

func (f *Firestore) Run() interfaces.RunRepository {
	return f.run
}

func (f *Firestore) Patch() interfaces.PatchRepository {
	return f.patch
}

func (f *Firestore) Event() interfaces.EventRepository {
	return f.event
}

func (f *Firestore) Inspection() interfaces.InspectionRepository {
	return f.inspection
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
