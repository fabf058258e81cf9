package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// LandscapesStore abstracts landscape and landscape group storage.
type LandscapesStore interface {
	ListLandscapes(ctx context.Context, opts ListOptions) (Page[model.Landscape], error)
	// FindLandscape accepts a slug or an id and preloads the membership list
	// and associated groups.
	FindLandscape(ctx context.Context, slugOrID string) (*model.Landscape, error)
	CreateLandscape(ctx context.Context, l *model.Landscape, creator *model.User) error
	UpdateLandscape(ctx context.Context, l *model.Landscape) error
	DeleteLandscape(ctx context.Context, l *model.Landscape) error

	FindLandscapeGroup(ctx context.Context, id uuid.UUID) (*model.LandscapeGroup, error)
	CreateLandscapeGroup(ctx context.Context, lg *model.LandscapeGroup) error
	DeleteLandscapeGroup(ctx context.Context, lg *model.LandscapeGroup) error
}
