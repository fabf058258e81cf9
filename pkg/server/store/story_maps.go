package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// StoryMapsStore abstracts story map storage.
type StoryMapsStore interface {
	// ListStoryMaps returns published story maps plus those the user
	// created or belongs to. A nil user sees published ones only.
	ListStoryMaps(ctx context.Context, userID *uuid.UUID, opts ListOptions) (Page[model.StoryMap], error)
	// FindStoryMap preloads the creator and the membership list with users.
	FindStoryMap(ctx context.Context, id uuid.UUID) (*model.StoryMap, error)
	// CreateStoryMap also creates the story map's membership list.
	CreateStoryMap(ctx context.Context, s *model.StoryMap) error
	UpdateStoryMap(ctx context.Context, s *model.StoryMap) error
	DeleteStoryMap(ctx context.Context, s *model.StoryMap) error
	// FindStoryMapByMembership returns the story map owning the membership.
	FindStoryMapByMembership(ctx context.Context, membershipID uuid.UUID) (*model.StoryMap, error)
}
