package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.GroupsStore = (*GroupsStore)(nil)

// GroupsStore implements store.GroupsStore using GORM
type GroupsStore struct {
	db *gorm.DB
}

// NewGroupsStore creates a new GroupsStore
func NewGroupsStore(db *gorm.DB) *GroupsStore {
	return &GroupsStore{db: db}
}

func (s *GroupsStore) ListGroups(ctx context.Context, opts store.ListOptions) (store.Page[model.Group], error) {
	q := s.db.WithContext(ctx).Model(&model.Group{})
	if opts.Search != "" {
		q = q.Where("name ILIKE ?", like(opts.Search))
	}
	return page[model.Group](q, opts, "name")
}

func (s *GroupsStore) FindGroup(ctx context.Context, slugOrID string) (*model.Group, error) {
	q := s.db.WithContext(ctx).Preload("MembershipList.Memberships.User.Preferences")
	return first[model.Group](bySlugOrID(q, slugOrID), "group")
}

func (s *GroupsStore) CreateGroup(ctx context.Context, g *model.Group, creator *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list := &model.MembershipList{EnrollMethod: model.EnrollJoin, MembershipType: model.MembershipTypeOpen}
		if g.MembershipList != nil {
			list.EnrollMethod = g.MembershipList.EnrollMethod
			list.MembershipType = g.MembershipList.MembershipType
		}
		if err := newMembershipList(tx, list, creator, string(model.GroupRoleManager)); err != nil {
			return err
		}
		g.MembershipListID = list.ID
		if creator != nil {
			g.CreatedByID = &creator.ID
		}
		if err := tx.Omit("MembershipList").Create(g).Error; err != nil {
			return err
		}
		g.MembershipList = list
		return nil
	})
}

func (s *GroupsStore) UpdateGroup(ctx context.Context, g *model.Group) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(g).Select("name", "description", "website", "email").Updates(g).Error; err != nil {
			return err
		}
		if g.MembershipList == nil {
			return nil
		}
		return tx.Model(g.MembershipList).
			Select("enroll_method", "membership_type").
			Updates(g.MembershipList).Error
	})
}

// DeleteGroup soft deletes the group with its associations.
func (s *GroupsStore) DeleteGroup(ctx context.Context, g *model.Group) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_group_id = ? OR child_group_id = ?", g.ID, g.ID).Delete(&model.GroupAssociation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", g.ID).Delete(&model.LandscapeGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(g).Error
	})
}

func (s *GroupsStore) FindGroupAssociation(ctx context.Context, id uuid.UUID) (*model.GroupAssociation, error) {
	return first[model.GroupAssociation](
		s.db.WithContext(ctx).
			Preload("ParentGroup.MembershipList.Memberships.User").
			Preload("ChildGroup.MembershipList.Memberships.User").
			Where("id = ?", id),
		"group association",
	)
}

func (s *GroupsStore) CreateGroupAssociation(ctx context.Context, a *model.GroupAssociation) error {
	return s.db.WithContext(ctx).Omit("ParentGroup", "ChildGroup").Create(a).Error
}

func (s *GroupsStore) DeleteGroupAssociation(ctx context.Context, a *model.GroupAssociation) error {
	return s.db.WithContext(ctx).Delete(a).Error
}
