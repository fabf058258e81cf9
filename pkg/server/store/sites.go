package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/export"
	"github.com/techmatters/terraso-go/pkg/model"
)

// SiteFilter narrows ListSites. Nil fields are ignored.
type SiteFilter = export.SiteFilter

// SitesStore abstracts site and site note storage.
type SitesStore interface {
	ListSites(ctx context.Context, f SiteFilter) ([]model.Site, error)
	// FindSite preloads the project with settings and memberships.
	FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error)
	CreateSite(ctx context.Context, s *model.Site) error
	UpdateSite(ctx context.Context, s *model.Site) error
	DeleteSite(ctx context.Context, s *model.Site) error
	// TransferSites moves the sites into the project in one transaction.
	TransferSites(ctx context.Context, siteIDs []uuid.UUID, projectID uuid.UUID) error
}

// SiteNotesStore abstracts site note storage.
type SiteNotesStore interface {
	// FindSiteNote preloads the site and its project.
	FindSiteNote(ctx context.Context, id uuid.UUID) (*model.SiteNote, error)
	CreateSiteNote(ctx context.Context, n *model.SiteNote) error
	UpdateSiteNote(ctx context.Context, n *model.SiteNote) error
	DeleteSiteNote(ctx context.Context, n *model.SiteNote) error
}
