package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

type inspectionRepository struct {
	mu          sync.RWMutex
	inspections []*model.Inspection
}

func newInspectionRepository() *inspectionRepository {
	return &inspectionRepository{}
}

func copyInspection(i *model.Inspection) *model.Inspection {
	copied := *i
	return &copied
}

func (r *inspectionRepository) Create(ctx context.Context, inspection *model.Inspection) (*model.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyInspection(inspection)
	if created.InspectedAt.IsZero() {
		created.InspectedAt = time.Now().UTC()
	}

	r.inspections = append(r.inspections, created)
	return copyInspection(created), nil
}

func (r *inspectionRepository) RecentForSite(ctx context.Context, siteID types.SiteID, window time.Duration) ([]*model.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-window)
	recent := make([]*model.Inspection, 0)
	for _, inspection := range r.inspections {
		if inspection.SiteID == siteID && inspection.InspectedAt.After(cutoff) {
			recent = append(recent, copyInspection(inspection))
		}
	}

	return recent, nil
}
