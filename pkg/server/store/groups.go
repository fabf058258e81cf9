package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// GroupsStore abstracts group and group association storage.
type GroupsStore interface {
	ListGroups(ctx context.Context, opts ListOptions) (Page[model.Group], error)
	// FindGroup accepts a slug or an id and preloads the membership list.
	FindGroup(ctx context.Context, slugOrID string) (*model.Group, error)
	// CreateGroup creates the group with its membership list and makes
	// creator its manager.
	CreateGroup(ctx context.Context, g *model.Group, creator *model.User) error
	UpdateGroup(ctx context.Context, g *model.Group) error
	DeleteGroup(ctx context.Context, g *model.Group) error

	FindGroupAssociation(ctx context.Context, id uuid.UUID) (*model.GroupAssociation, error)
	CreateGroupAssociation(ctx context.Context, a *model.GroupAssociation) error
	DeleteGroupAssociation(ctx context.Context, a *model.GroupAssociation) error
}
