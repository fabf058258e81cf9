package gorm

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var (
	_ store.MembershipsStore = (*MembershipsStore)(nil)
	_ collaboration.Store    = (*MembershipsStore)(nil)
)

// MembershipsStore implements store.MembershipsStore using GORM
type MembershipsStore struct {
	db *gorm.DB
}

// NewMembershipsStore creates a new MembershipsStore
func NewMembershipsStore(db *gorm.DB) *MembershipsStore {
	return &MembershipsStore{db: db}
}

func (s *MembershipsStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return firstOrNil[model.User](s.db.WithContext(ctx).Preload("Preferences").Where("lower(email) = lower(?)", strings.TrimSpace(email)))
}

// FindMembership matches the user id when given, else the pending email.
func (s *MembershipsStore) FindMembership(ctx context.Context, listID uuid.UUID, userID *uuid.UUID, email string) (*model.Membership, error) {
	q := s.db.WithContext(ctx).Preload("User").Where("membership_list_id = ?", listID)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	} else {
		q = q.Where("lower(pending_email) = lower(?)", email)
	}
	return firstOrNil[model.Membership](q)
}

func (s *MembershipsStore) GetMembership(ctx context.Context, listID, membershipID uuid.UUID) (*model.Membership, error) {
	return first[model.Membership](
		s.db.WithContext(ctx).Preload("User").Where("membership_list_id = ? AND id = ?", listID, membershipID),
		"membership",
	)
}

func (s *MembershipsStore) SaveMembership(ctx context.Context, m *model.Membership) error {
	return s.db.WithContext(ctx).Omit("User").Save(m).Error
}

func (s *MembershipsStore) FindMembershipList(ctx context.Context, id uuid.UUID) (*model.MembershipList, error) {
	return first[model.MembershipList](
		s.db.WithContext(ctx).Preload("Memberships.User").Where("id = ?", id),
		"membership list",
	)
}

func (s *MembershipsStore) ListMemberships(ctx context.Context, listID uuid.UUID) ([]model.Membership, error) {
	var out []model.Membership
	err := s.db.WithContext(ctx).Preload("User").
		Where("membership_list_id = ?", listID).
		Order("created_at").
		Find(&out).Error
	return out, err
}

func (s *MembershipsStore) DeleteMembership(ctx context.Context, m *model.Membership) error {
	return s.db.WithContext(ctx).Delete(m).Error
}

func (s *MembershipsStore) PendingByEmail(ctx context.Context, email string) ([]model.Membership, error) {
	var out []model.Membership
	err := s.db.WithContext(ctx).
		Where("lower(pending_email) = lower(?) AND user_id IS NULL", email).
		Find(&out).Error
	return out, err
}

// newMembershipList creates a roster whose first member is manager.
func newMembershipList(tx *gorm.DB, list *model.MembershipList, manager *model.User, role string) error {
	if err := tx.Omit("Memberships").Create(list).Error; err != nil {
		return err
	}
	if manager == nil {
		return nil
	}
	m := &model.Membership{
		MembershipListID: list.ID,
		UserID:           &manager.ID,
		UserRole:         role,
		MembershipStatus: model.MembershipApproved,
	}
	if err := tx.Omit("User").Create(m).Error; err != nil {
		return err
	}
	m.User = manager
	list.Memberships = append(list.Memberships, *m)
	return nil
}
