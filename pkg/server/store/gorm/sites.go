package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var (
	_ store.SitesStore     = (*SitesStore)(nil)
	_ store.SiteNotesStore = (*SitesStore)(nil)
)

// SitesStore implements store.SitesStore and store.SiteNotesStore using GORM
type SitesStore struct {
	db *gorm.DB
}

// NewSitesStore creates a new SitesStore
func NewSitesStore(db *gorm.DB) *SitesStore {
	return &SitesStore{db: db}
}

func siteQuery(db *gorm.DB) *gorm.DB {
	return db.Preload("Project.Settings").Preload("Project.MembershipList.Memberships.User")
}

func filterSites(q *gorm.DB, f store.SiteFilter) *gorm.DB {
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.MemberID != nil {
		q = q.Where(`project_id IN (
			SELECT projects.id FROM projects
			JOIN memberships ON memberships.membership_list_id = projects.membership_list_id
			WHERE memberships.user_id = ? AND memberships.membership_status = 'approved'
				AND memberships.deleted_at IS NULL AND projects.deleted_at IS NULL)`, *f.MemberID)
	}
	return q
}

func (s *SitesStore) ListSites(ctx context.Context, f store.SiteFilter) ([]model.Site, error) {
	var out []model.Site
	err := filterSites(siteQuery(s.db.WithContext(ctx)), f).Order("name").Find(&out).Error
	return out, err
}

func (s *SitesStore) FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error) {
	return first[model.Site](siteQuery(s.db.WithContext(ctx)).Preload("Owner").Where("id = ?", id), "site")
}

func (s *SitesStore) CreateSite(ctx context.Context, site *model.Site) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(site).Error
}

func (s *SitesStore) UpdateSite(ctx context.Context, site *model.Site) error {
	return s.db.WithContext(ctx).Model(site).Omit(clause.Associations).
		Select("name", "latitude", "longitude", "elevation", "privacy", "archived", "project_id", "owner_id").
		Updates(site).Error
}

func (s *SitesStore) DeleteSite(ctx context.Context, site *model.Site) error {
	return s.db.WithContext(ctx).Delete(site).Error
}

func (s *SitesStore) TransferSites(ctx context.Context, siteIDs []uuid.UUID, projectID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Site{}).Where("id IN ?", siteIDs).
			Updates(map[string]interface{}{"project_id": projectID, "owner_id": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(siteIDs)) {
			return fmt.Errorf("transfer %d sites, matched %d: %w", len(siteIDs), res.RowsAffected, store.ErrNotFound)
		}
		return nil
	})
}

func (s *SitesStore) FindSiteNote(ctx context.Context, id uuid.UUID) (*model.SiteNote, error) {
	return first[model.SiteNote](
		s.db.WithContext(ctx).
			Preload("Author").
			Preload("Site.Project.Settings").
			Preload("Site.Project.MembershipList.Memberships.User").
			Where("id = ?", id),
		"site note",
	)
}

func (s *SitesStore) CreateSiteNote(ctx context.Context, n *model.SiteNote) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

func (s *SitesStore) UpdateSiteNote(ctx context.Context, n *model.SiteNote) error {
	return s.db.WithContext(ctx).Model(n).Omit(clause.Associations).Update("content", n.Content).Error
}

func (s *SitesStore) DeleteSiteNote(ctx context.Context, n *model.SiteNote) error {
	return s.db.WithContext(ctx).Delete(n).Error
}
