package gorm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.SharedDataStore = (*SharedDataStore)(nil)

// SharedDataStore implements store.SharedDataStore using GORM
type SharedDataStore struct {
	db *gorm.DB
}

// NewSharedDataStore creates a new SharedDataStore
func NewSharedDataStore(db *gorm.DB) *SharedDataStore {
	return &SharedDataStore{db: db}
}

func sharedWith(q *gorm.DB, column string, f store.SharedFilter) *gorm.DB {
	if f.TargetID != nil {
		q = q.Where(column+` IN (
			SELECT source_id FROM shared_resources
			WHERE target_type = ? AND target_id = ? AND deleted_at IS NULL)`, f.TargetType, *f.TargetID)
	}
	return q
}

func (s *SharedDataStore) loadShares(ctx context.Context, entries []model.DataEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}
	var shares []model.SharedResource
	err := s.db.WithContext(ctx).
		Where("source_type = ? AND source_id IN ?", model.SourceDataEntry, ids).
		Order("created_at").
		Find(&shares).Error
	if err != nil {
		return err
	}
	byEntry := map[uuid.UUID][]model.SharedResource{}
	for _, sh := range shares {
		byEntry[sh.SourceID] = append(byEntry[sh.SourceID], sh)
	}
	for i := range entries {
		entries[i].SharedResources = byEntry[entries[i].ID]
	}
	return nil
}

func (s *SharedDataStore) ListDataEntries(ctx context.Context, f store.SharedFilter, opts store.ListOptions) (store.Page[model.DataEntry], error) {
	q := s.db.WithContext(ctx).Model(&model.DataEntry{}).Preload("CreatedBy")
	q = sharedWith(q, "id", f)
	if len(f.ResourceTypes) > 0 {
		q = q.Where("resource_type IN ?", f.ResourceTypes)
	}
	if opts.Search != "" {
		q = q.Where("name ILIKE ?", like(opts.Search))
	}
	p, err := page[model.DataEntry](q, opts, "created_at DESC")
	if err != nil {
		return p, err
	}
	return p, s.loadShares(ctx, p.Items)
}

func (s *SharedDataStore) FindDataEntry(ctx context.Context, id uuid.UUID) (*model.DataEntry, error) {
	e, err := first[model.DataEntry](s.db.WithContext(ctx).Preload("CreatedBy").Where("id = ?", id), "data entry")
	if err != nil {
		return nil, err
	}
	entries := []model.DataEntry{*e}
	if err := s.loadShares(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (s *SharedDataStore) CreateDataEntry(ctx context.Context, e *model.DataEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
			return err
		}
		for i := range e.SharedResources {
			sh := &e.SharedResources[i]
			sh.SourceType = model.SourceDataEntry
			sh.SourceID = e.ID
			if err := tx.Create(sh).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SharedDataStore) UpdateDataEntry(ctx context.Context, e *model.DataEntry) error {
	return s.db.WithContext(ctx).Model(e).Omit(clause.Associations).
		Select("name", "description", "url", "resource_type", "file_removed_at").
		Updates(e).Error
}

func (s *SharedDataStore) DeleteDataEntry(ctx context.Context, e *model.DataEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_type = ? AND source_id = ?", model.SourceDataEntry, e.ID).Delete(&model.SharedResource{}).Error; err != nil {
			return err
		}
		if err := tx.Where("data_entry_id = ?", e.ID).Delete(&model.VisualizationConfig{}).Error; err != nil {
			return err
		}
		now := time.Now()
		e.FileRemovedAt = &now
		if err := tx.Model(e).Update("file_removed_at", now).Error; err != nil {
			return err
		}
		return tx.Delete(e).Error
	})
}

func (s *SharedDataStore) SharedTargets(ctx context.Context, entryID uuid.UUID) ([]permission.SharedTarget, error) {
	var shares []model.SharedResource
	err := s.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", model.SourceDataEntry, entryID).
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	out := make([]permission.SharedTarget, 0, len(shares))
	for _, sh := range shares {
		var listID uuid.UUID
		switch sh.TargetType {
		case model.TargetGroup:
			g, err := firstOrNil[model.Group](s.db.WithContext(ctx).Where("id = ?", sh.TargetID))
			if err != nil {
				return nil, err
			}
			if g == nil {
				continue
			}
			listID = g.MembershipListID
		case model.TargetLandscape:
			l, err := firstOrNil[model.Landscape](s.db.WithContext(ctx).Where("id = ?", sh.TargetID))
			if err != nil {
				return nil, err
			}
			if l == nil {
				continue
			}
			listID = l.MembershipListID
		default:
			continue
		}
		list, err := firstOrNil[model.MembershipList](s.db.WithContext(ctx).Preload("Memberships.User").Where("id = ?", listID))
		if err != nil {
			return nil, err
		}
		if list != nil {
			out = append(out, permission.SharedTarget{List: list, Access: sh.ShareAccess})
		}
	}
	return out, nil
}

func (s *SharedDataStore) ListVisualizationConfigs(ctx context.Context, f store.SharedFilter, opts store.ListOptions) (store.Page[model.VisualizationConfig], error) {
	q := s.db.WithContext(ctx).Model(&model.VisualizationConfig{}).Preload("DataEntry")
	if f.TargetID != nil {
		q = q.Where("owner_type = ? AND owner_id = ?", f.TargetType, *f.TargetID)
	}
	if opts.Search != "" {
		q = q.Where("title ILIKE ?", like(opts.Search))
	}
	return page[model.VisualizationConfig](q, opts, "created_at DESC")
}

func (s *SharedDataStore) FindVisualizationConfig(ctx context.Context, id uuid.UUID) (*model.VisualizationConfig, error) {
	return first[model.VisualizationConfig](
		s.db.WithContext(ctx).Preload("DataEntry").Where("id = ?", id),
		"visualization config",
	)
}

func (s *SharedDataStore) CreateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error
}

func (s *SharedDataStore) UpdateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	return s.db.WithContext(ctx).Model(v).Omit(clause.Associations).
		Select("title", "description", "configuration", "mapbox_tileset_id", "mapbox_tileset_status").
		Updates(v).Error
}

func (s *SharedDataStore) DeleteVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	return s.db.WithContext(ctx).Delete(v).Error
}
