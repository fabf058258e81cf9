package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.MaintenanceStore = (*MaintenanceStore)(nil)

// MaintenanceStore implements store.MaintenanceStore using GORM
type MaintenanceStore struct {
	db *gorm.DB
}

// NewMaintenanceStore creates a new MaintenanceStore
func NewMaintenanceStore(db *gorm.DB) *MaintenanceStore {
	return &MaintenanceStore{db: db}
}

// purgeOrder lists soft deletable tables with dependents before the rows
// they reference.
var purgeOrder = []struct {
	table string
	model interface{}
}{
	{"shared_resources", &model.SharedResource{}},
	{"visualization_configs", &model.VisualizationConfig{}},
	{"data_entries", &model.DataEntry{}},
	{"story_maps", &model.StoryMap{}},
	{"site_notes", &model.SiteNote{}},
	{"sites", &model.Site{}},
	{"memberships", &model.Membership{}},
	{"landscape_groups", &model.LandscapeGroup{}},
	{"group_associations", &model.GroupAssociation{}},
	{"landscapes", &model.Landscape{}},
	{"groups", &model.Group{}},
	{"projects", &model.Project{}},
	{"users", &model.User{}},
}

func (s *MaintenanceStore) HardDelete(ctx context.Context, cutoff time.Time) (map[string]int64, error) {
	removed := make(map[string]int64, len(purgeOrder))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range purgeOrder {
			res := tx.Unscoped().Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).Delete(t.model)
			if res.Error != nil {
				return res.Error
			}
			removed[t.table] = res.RowsAffected
		}
		// Lists whose owner is gone.
		res := tx.Exec(`DELETE FROM membership_lists
			WHERE deleted_at IS NOT NULL AND deleted_at < ?
			AND id NOT IN (SELECT membership_list_id FROM groups)
			AND id NOT IN (SELECT membership_list_id FROM landscapes)
			AND id NOT IN (SELECT membership_list_id FROM projects)
			AND id NOT IN (SELECT membership_list_id FROM story_maps WHERE membership_list_id IS NOT NULL)`, cutoff)
		if res.Error != nil {
			return res.Error
		}
		removed["membership_lists"] = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
