package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/model"
)

// MembershipsStore is the roster storage shared by groups, landscapes,
// projects and story maps.
type MembershipsStore interface {
	collaboration.Store

	// FindMembershipList preloads memberships with their users.
	FindMembershipList(ctx context.Context, id uuid.UUID) (*model.MembershipList, error)
	ListMemberships(ctx context.Context, listID uuid.UUID) ([]model.Membership, error)
	DeleteMembership(ctx context.Context, m *model.Membership) error
	PendingByEmail(ctx context.Context, email string) ([]model.Membership, error)
}
