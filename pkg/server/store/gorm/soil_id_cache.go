package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.SoilIDCacheStore = (*SoilIDCacheStore)(nil)

// SoilIDCacheStore implements soilid.CacheStore using GORM
type SoilIDCacheStore struct {
	db *gorm.DB
}

// NewSoilIDCacheStore creates a new SoilIDCacheStore
func NewSoilIDCacheStore(db *gorm.DB) *SoilIDCacheStore {
	return &SoilIDCacheStore{db: db}
}

func (s *SoilIDCacheStore) FindSoilIDCache(ctx context.Context, lat, lon float64) (*model.SoilIDCache, error) {
	return firstOrNil[model.SoilIDCache](s.db.WithContext(ctx).Where("latitude = ? AND longitude = ?", lat, lon))
}

// SaveSoilIDCache upserts on the coordinate.
func (s *SoilIDCacheStore) SaveSoilIDCache(ctx context.Context, entry *model.SoilIDCache) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "latitude"}, {Name: "longitude"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"failure_reason", "soil_list_json", "rank_data_csv", "map_unit_component_data_csv", "updated_at",
		}),
	}).Create(entry).Error
}
