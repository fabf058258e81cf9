package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// ProjectsStore abstracts project storage.
type ProjectsStore interface {
	// ListProjects returns projects the user is a member of.
	ListProjects(ctx context.Context, userID uuid.UUID, opts ListOptions) (Page[model.Project], error)
	// FindProject preloads settings and the membership list with users.
	FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// CreateProject creates settings and a membership list, making creator
	// the manager.
	CreateProject(ctx context.Context, p *model.Project, creator *model.User) error
	UpdateProject(ctx context.Context, p *model.Project) error
	// ArchiveProject sets the archived flag on the project and its sites.
	ArchiveProject(ctx context.Context, p *model.Project, archived bool) error
	// DeleteProject soft deletes the project and its sites.
	DeleteProject(ctx context.Context, p *model.Project) error
	MarkSeen(ctx context.Context, projectID, userID uuid.UUID) error
	// RoleOf looks up the user's approved role, empty when not a member.
	RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.ProjectRole, error)
}
