package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// UsersStore abstracts user and preference storage.
type UsersStore interface {
	// FindUser preloads preferences. Returns ErrNotFound if missing.
	FindUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindUserByEmail matches case-insensitively and returns nil, nil when
	// nothing matches.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetOrCreateByEmail(ctx context.Context, email string) (*model.User, bool, error)
	Update(ctx context.Context, user *model.User) error
	SetPreference(ctx context.Context, userID uuid.UUID, key, value string) error
	UpdateProfileImage(ctx context.Context, userID uuid.UUID, url string) error
	ListUsers(ctx context.Context, opts ListOptions) (Page[model.User], error)
	// ClaimPendingMemberships attaches invitations sent to the user's email
	// to the user.
	ClaimPendingMemberships(ctx context.Context, user *model.User) (int64, error)
}
