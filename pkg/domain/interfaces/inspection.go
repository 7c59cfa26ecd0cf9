package interfaces

import (
	"context"
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// InspectionRepository defines the interface for site inspection records
type InspectionRepository interface {
	// Create creates a new inspection record
	Create(ctx context.Context, inspection *model.Inspection) (*model.Inspection, error)

	// RecentForSite retrieves inspection records for a site newer than the window
	RecentForSite(ctx context.Context, siteID types.SiteID, window time.Duration) ([]*model.Inspection, error)
}
