package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type inspectionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newInspectionRepository(client *firestore.Client) *inspectionRepository {
	return &inspectionRepository{client: client}
}

func (r *inspectionRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_inspections"
	}
	return "inspections"
}

func (r *inspectionRepository) Create(ctx context.Context, inspection *model.Inspection) (*model.Inspection, error) {
	created := *inspection
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.InspectedAt.IsZero() {
		created.InspectedAt = time.Now().UTC()
	}

	docRef := r.client.Collection(r.collection()).Doc(created.ID)
	if _, err := docRef.Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create inspection", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *inspectionRepository) RecentForSite(ctx context.Context, siteID types.SiteID, window time.Duration) ([]*model.Inspection, error) {
	cutoff := time.Now().UTC().Add(-window)

	iter := r.client.Collection(r.collection()).
		Where("SiteID", "==", siteID.String()).
		Where("InspectedAt", ">", cutoff).
		Documents(ctx)
	defer iter.Stop()

	inspections := make([]*model.Inspection, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate inspections", goerr.V("siteID", siteID))
		}

		var inspection model.Inspection
		if err := docSnap.DataTo(&inspection); err != nil {
			return nil, goerr.Wrap(err, "failed to decode inspection")
		}
		inspections = append(inspections, &inspection)
	}

	return inspections, nil
}
