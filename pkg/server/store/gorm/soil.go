package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/soil"
)

var _ store.SoilDataStore = (*SoilDataStore)(nil)

// SoilDataStore implements soil.Store using GORM
type SoilDataStore struct {
	db *gorm.DB
}

// NewSoilDataStore creates a new SoilDataStore
func NewSoilDataStore(db *gorm.DB) *SoilDataStore {
	return &SoilDataStore{db: db}
}

// Transaction runs fn in a transaction. Calls made on an open transaction
// use a savepoint.
func (s *SoilDataStore) Transaction(ctx context.Context, fn func(tx soil.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SoilDataStore{db: tx})
	})
}

func (s *SoilDataStore) FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error) {
	return firstOrNil[model.Site](siteQuery(s.db.WithContext(ctx)).Where("id = ?", id))
}

func (s *SoilDataStore) FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	return firstOrNil[model.Project](
		s.db.WithContext(ctx).Preload("Settings").Preload("MembershipList.Memberships.User").Where("id = ?", id),
	)
}

func byInterval(q *gorm.DB, intervals []model.DepthInterval) *gorm.DB {
	if len(intervals) == 0 {
		return q
	}
	cond := q.Session(&gorm.Session{NewDB: true})
	for _, d := range intervals {
		cond = cond.Or("depth_interval_start = ? AND depth_interval_end = ?", d.Start, d.End)
	}
	return q.Where(cond)
}

func (s *SoilDataStore) FindSoilData(ctx context.Context, siteID uuid.UUID) (*model.SoilData, error) {
	return firstOrNil[model.SoilData](
		s.db.WithContext(ctx).
			Preload("DepthIntervals", func(db *gorm.DB) *gorm.DB { return db.Order("depth_interval_start") }).
			Preload("DepthDependentData", func(db *gorm.DB) *gorm.DB { return db.Order("depth_interval_start") }).
			Where("site_id = ?", siteID),
	)
}

func (s *SoilDataStore) SaveSoilData(ctx context.Context, d *model.SoilData) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(d).Error
}

func (s *SoilDataStore) SaveDepthInterval(ctx context.Context, i *model.SoilDataDepthInterval) error {
	return s.db.WithContext(ctx).Save(i).Error
}

func (s *SoilDataStore) DeleteDepthIntervals(ctx context.Context, soilDataID uuid.UUID, intervals []model.DepthInterval) error {
	q := s.db.WithContext(ctx).Where("soil_data_id = ?", soilDataID)
	return byInterval(q, intervals).Delete(&model.SoilDataDepthInterval{}).Error
}

func (s *SoilDataStore) SaveDepthDependentData(ctx context.Context, d *model.DepthDependentData) error {
	return s.db.WithContext(ctx).Save(d).Error
}

const projectSoilData = `soil_data_id IN (
	SELECT soil_data.id FROM soil_data JOIN sites ON sites.id = soil_data.site_id
	WHERE sites.project_id = ?)`

func (s *SoilDataStore) DeleteProjectSiteIntervals(ctx context.Context, projectID uuid.UUID) error {
	return s.db.WithContext(ctx).Where(projectSoilData, projectID).Delete(&model.SoilDataDepthInterval{}).Error
}

func (s *SoilDataStore) DeleteProjectDepthDependentData(ctx context.Context, projectID uuid.UUID) error {
	return s.db.WithContext(ctx).Where(projectSoilData, projectID).Delete(&model.DepthDependentData{}).Error
}

func (s *SoilDataStore) FindSoilMetadata(ctx context.Context, siteID uuid.UUID) (*model.SoilMetadata, error) {
	return firstOrNil[model.SoilMetadata](s.db.WithContext(ctx).Where("site_id = ?", siteID))
}

func (s *SoilDataStore) SaveSoilMetadata(ctx context.Context, m *model.SoilMetadata) error {
	return s.db.WithContext(ctx).Save(m).Error
}

func (s *SoilDataStore) SaveHistory(ctx context.Context, h *model.SoilDataHistory) error {
	return s.db.WithContext(ctx).Save(h).Error
}

func (s *SoilDataStore) FindProjectSoilSettings(ctx context.Context, projectID uuid.UUID) (*model.ProjectSoilSettings, error) {
	return firstOrNil[model.ProjectSoilSettings](
		s.db.WithContext(ctx).
			Preload("DepthIntervals", func(db *gorm.DB) *gorm.DB { return db.Order("depth_interval_start") }).
			Where("project_id = ?", projectID),
	)
}

func (s *SoilDataStore) SaveProjectSoilSettings(ctx context.Context, ps *model.ProjectSoilSettings) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(ps).Error
}

func (s *SoilDataStore) SaveProjectDepthInterval(ctx context.Context, i *model.ProjectDepthInterval) error {
	return s.db.WithContext(ctx).Save(i).Error
}

func (s *SoilDataStore) DeleteProjectDepthIntervals(ctx context.Context, settingsID uuid.UUID, intervals []model.DepthInterval) error {
	q := s.db.WithContext(ctx).Where("project_soil_settings_id = ?", settingsID)
	return byInterval(q, intervals).Delete(&model.ProjectDepthInterval{}).Error
}
