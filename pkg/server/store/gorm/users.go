package gorm

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var (
	_ store.UsersStore = (*UsersStore)(nil)
	_ auth.UserStore   = (*UsersStore)(nil)
)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

func (s *UsersStore) FindUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return first[model.User](s.db.WithContext(ctx).Preload("Preferences").Where("id = ?", id), "user")
}

func (s *UsersStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return firstOrNil[model.User](s.db.WithContext(ctx).Preload("Preferences").Where("lower(email) = lower(?)", strings.TrimSpace(email)))
}

// GetOrCreateByEmail creates the user on first sign in. created is true
// when a row was inserted.
func (s *UsersStore) GetOrCreateByEmail(ctx context.Context, email string) (*model.User, bool, error) {
	var (
		user    *model.User
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := firstOrNil[model.User](tx.Preload("Preferences").Where("lower(email) = lower(?)", email))
		if err != nil {
			return err
		}
		if existing != nil {
			user = existing
			return nil
		}
		user = &model.User{Email: strings.TrimSpace(email), IsActive: true}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return user, created, err
}

func (s *UsersStore) Update(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Model(user).Select("first_name", "last_name", "profile_image", "is_active").Updates(user).Error
}

// SetPreference upserts on (user_id, key).
func (s *UsersStore) SetPreference(ctx context.Context, userID uuid.UUID, key, value string) error {
	pref := &model.UserPreference{UserID: userID, Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(pref).Error
}

func (s *UsersStore) UpdateProfileImage(ctx context.Context, userID uuid.UUID, url string) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("profile_image", url).Error
}

func (s *UsersStore) ListUsers(ctx context.Context, opts store.ListOptions) (store.Page[model.User], error) {
	q := s.db.WithContext(ctx).Model(&model.User{})
	if opts.Search != "" {
		q = q.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", like(opts.Search), like(opts.Search), like(opts.Search))
	}
	return page[model.User](q, opts, "email")
}

func (s *UsersStore) ClaimPendingMemberships(ctx context.Context, user *model.User) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&model.Membership{}).
		Where("lower(pending_email) = lower(?) AND user_id IS NULL", user.Email).
		Updates(map[string]interface{}{"user_id": user.ID, "pending_email": nil})
	return tx.RowsAffected, tx.Error
}
