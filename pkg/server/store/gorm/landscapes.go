package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.LandscapesStore = (*LandscapesStore)(nil)

// LandscapesStore implements store.LandscapesStore using GORM
type LandscapesStore struct {
	db *gorm.DB
}

// NewLandscapesStore creates a new LandscapesStore
func NewLandscapesStore(db *gorm.DB) *LandscapesStore {
	return &LandscapesStore{db: db}
}

func (s *LandscapesStore) ListLandscapes(ctx context.Context, opts store.ListOptions) (store.Page[model.Landscape], error) {
	q := s.db.WithContext(ctx).Model(&model.Landscape{})
	if opts.Search != "" {
		q = q.Where("name ILIKE ? OR location ILIKE ?", like(opts.Search), like(opts.Search))
	}
	return page[model.Landscape](q, opts, "name")
}

func (s *LandscapesStore) FindLandscape(ctx context.Context, slugOrID string) (*model.Landscape, error) {
	q := s.db.WithContext(ctx).
		Preload("MembershipList.Memberships.User").
		Preload("LandscapeGroups.Group")
	return first[model.Landscape](bySlugOrID(q, slugOrID), "landscape")
}

func (s *LandscapesStore) CreateLandscape(ctx context.Context, l *model.Landscape, creator *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list := &model.MembershipList{EnrollMethod: model.EnrollJoin, MembershipType: model.MembershipTypeOpen}
		if err := newMembershipList(tx, list, creator, string(model.GroupRoleManager)); err != nil {
			return err
		}
		l.MembershipListID = list.ID
		if creator != nil {
			l.CreatedByID = &creator.ID
		}
		if err := tx.Omit("MembershipList", "LandscapeGroups").Create(l).Error; err != nil {
			return err
		}
		l.MembershipList = list
		return nil
	})
}

func (s *LandscapesStore) UpdateLandscape(ctx context.Context, l *model.Landscape) error {
	return s.db.WithContext(ctx).Model(l).Select(
		"name", "description", "website", "location", "email", "area_polygon", "area_scalar_m2",
		"center_coordinates", "population", "partnership_status", "profile_image", "profile_image_description",
	).Updates(l).Error
}

func (s *LandscapesStore) DeleteLandscape(ctx context.Context, l *model.Landscape) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("landscape_id = ?", l.ID).Delete(&model.LandscapeGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(l).Error
	})
}

func (s *LandscapesStore) FindLandscapeGroup(ctx context.Context, id uuid.UUID) (*model.LandscapeGroup, error) {
	return first[model.LandscapeGroup](
		s.db.WithContext(ctx).
			Preload("Landscape.MembershipList.Memberships.User").
			Preload("Group.MembershipList.Memberships.User").
			Where("id = ?", id),
		"landscape group",
	)
}

func (s *LandscapesStore) CreateLandscapeGroup(ctx context.Context, lg *model.LandscapeGroup) error {
	return s.db.WithContext(ctx).Omit("Landscape", "Group").Create(lg).Error
}

func (s *LandscapesStore) DeleteLandscapeGroup(ctx context.Context, lg *model.LandscapeGroup) error {
	return s.db.WithContext(ctx).Delete(lg).Error
}
