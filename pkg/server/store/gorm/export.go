package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.ExportStore = (*ExportStore)(nil)

// ExportStore implements store.ExportStore using GORM. Find methods return
// nil, nil on a miss.
type ExportStore struct {
	*SoilDataStore
	db *gorm.DB
}

// NewExportStore creates a new ExportStore
func NewExportStore(db *gorm.DB) *ExportStore {
	return &ExportStore{SoilDataStore: NewSoilDataStore(db), db: db}
}

func (s *ExportStore) FindUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return firstOrNil[model.User](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *ExportStore) ListSites(ctx context.Context, f store.SiteFilter) ([]model.Site, error) {
	var out []model.Site
	err := filterSites(siteQuery(s.db.WithContext(ctx)), f).Order("name").Find(&out).Error
	return out, err
}

func (s *ExportStore) ListSiteNotes(ctx context.Context, siteID uuid.UUID) ([]model.SiteNote, error) {
	var out []model.SiteNote
	err := s.db.WithContext(ctx).Preload("Author").
		Where("site_id = ?", siteID).
		Order("created_at").
		Find(&out).Error
	return out, err
}

func (s *ExportStore) FindExportToken(ctx context.Context, token string) (*model.ExportToken, error) {
	return firstOrNil[model.ExportToken](s.db.WithContext(ctx).Where("token = ?", token))
}

func (s *ExportStore) FindExportTokenFor(ctx context.Context, t model.ExportResourceType, resourceID string) (*model.ExportToken, error) {
	return firstOrNil[model.ExportToken](
		s.db.WithContext(ctx).Where("resource_type = ? AND resource_id = ?", t, resourceID),
	)
}

func (s *ExportStore) CreateExportToken(ctx context.Context, t *model.ExportToken) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *ExportStore) DeleteExportToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.ExportToken{}).Error
}

func (s *ExportStore) ListExportTokens(ctx context.Context, userID uuid.UUID) ([]model.ExportToken, error) {
	var out []model.ExportToken
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}
