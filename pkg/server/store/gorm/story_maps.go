package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.StoryMapsStore = (*StoryMapsStore)(nil)

// StoryMapsStore implements store.StoryMapsStore using GORM
type StoryMapsStore struct {
	db *gorm.DB
}

// NewStoryMapsStore creates a new StoryMapsStore
func NewStoryMapsStore(db *gorm.DB) *StoryMapsStore {
	return &StoryMapsStore{db: db}
}

func (s *StoryMapsStore) ListStoryMaps(ctx context.Context, userID *uuid.UUID, opts store.ListOptions) (store.Page[model.StoryMap], error) {
	q := s.db.WithContext(ctx).Model(&model.StoryMap{}).Preload("CreatedBy")
	if userID == nil {
		q = q.Where("is_published")
	} else {
		q = q.Where(`is_published OR created_by_id = ? OR membership_list_id IN (
			SELECT membership_list_id FROM memberships WHERE user_id = ? AND deleted_at IS NULL)`, *userID, *userID)
	}
	if opts.Search != "" {
		q = q.Where("title ILIKE ?", like(opts.Search))
	}
	return page[model.StoryMap](q, opts, "updated_at DESC")
}

func storyMapQuery(db *gorm.DB) *gorm.DB {
	return db.Preload("CreatedBy").Preload("MembershipList.Memberships.User.Preferences")
}

func (s *StoryMapsStore) FindStoryMap(ctx context.Context, id uuid.UUID) (*model.StoryMap, error) {
	return first[model.StoryMap](storyMapQuery(s.db.WithContext(ctx)).Where("id = ?", id), "story map")
}

func (s *StoryMapsStore) CreateStoryMap(ctx context.Context, sm *model.StoryMap) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list := &model.MembershipList{EnrollMethod: model.EnrollInvite, MembershipType: model.MembershipTypeClosed}
		if err := newMembershipList(tx, list, nil, ""); err != nil {
			return err
		}
		sm.MembershipListID = &list.ID
		if err := tx.Omit(clause.Associations).Create(sm).Error; err != nil {
			return err
		}
		sm.MembershipList = list
		return nil
	})
}

func (s *StoryMapsStore) UpdateStoryMap(ctx context.Context, sm *model.StoryMap) error {
	return s.db.WithContext(ctx).Model(sm).Omit(clause.Associations).
		Select("title", "configuration", "is_published", "published_at").
		Updates(sm).Error
}

func (s *StoryMapsStore) DeleteStoryMap(ctx context.Context, sm *model.StoryMap) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sm.MembershipListID != nil {
			if err := tx.Where("membership_list_id = ?", *sm.MembershipListID).Delete(&model.Membership{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(sm).Error
	})
}

func (s *StoryMapsStore) FindStoryMapByMembership(ctx context.Context, membershipID uuid.UUID) (*model.StoryMap, error) {
	return first[model.StoryMap](
		storyMapQuery(s.db.WithContext(ctx)).
			Where("membership_list_id = (SELECT membership_list_id FROM memberships WHERE id = ?)", membershipID),
		"story map",
	)
}
