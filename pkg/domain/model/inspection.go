package model

import (
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

// Inspection is one site crawl/inspection record. Crawl verification passes
// when a sufficiently recent inspection exists for the site.
type Inspection struct {
	ID           string
	SiteID       types.SiteID
	PagesCrawled int
	IssuesFound  int
	InspectedAt  time.Time
}
