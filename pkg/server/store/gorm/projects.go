package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.ProjectsStore = (*ProjectsStore)(nil)

// ProjectsStore implements store.ProjectsStore using GORM
type ProjectsStore struct {
	db *gorm.DB
}

// NewProjectsStore creates a new ProjectsStore
func NewProjectsStore(db *gorm.DB) *ProjectsStore {
	return &ProjectsStore{db: db}
}

const memberProjects = `membership_list_id IN (
	SELECT membership_list_id FROM memberships
	WHERE user_id = ? AND membership_status = 'approved' AND deleted_at IS NULL)`

func (s *ProjectsStore) ListProjects(ctx context.Context, userID uuid.UUID, opts store.ListOptions) (store.Page[model.Project], error) {
	q := s.db.WithContext(ctx).Model(&model.Project{}).
		Preload("Settings").
		Preload("MembershipList.Memberships.User").
		Where(memberProjects, userID)
	if opts.Search != "" {
		q = q.Where("name ILIKE ?", like(opts.Search))
	}
	return page[model.Project](q, opts, "name")
}

func (s *ProjectsStore) FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	return first[model.Project](
		s.db.WithContext(ctx).
			Preload("Settings").
			Preload("SoilSettings.DepthIntervals").
			Preload("MembershipList.Memberships.User").
			Where("id = ?", id),
		"project",
	)
}

func (s *ProjectsStore) CreateProject(ctx context.Context, p *model.Project, creator *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings := p.Settings
		if settings == nil {
			settings = &model.ProjectSettings{}
		}
		if err := tx.Create(settings).Error; err != nil {
			return err
		}
		list := &model.MembershipList{EnrollMethod: model.EnrollInvite, MembershipType: model.MembershipTypeClosed}
		if err := newMembershipList(tx, list, creator, string(model.ProjectRoleManager)); err != nil {
			return err
		}
		p.SettingsID = settings.ID
		p.MembershipListID = list.ID
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		p.Settings = settings
		p.MembershipList = list
		return nil
	})
}

func (s *ProjectsStore) UpdateProject(ctx context.Context, p *model.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(p).Omit(clause.Associations).
			Select("name", "description", "measurement_units", "privacy", "site_instructions").
			Updates(p).Error
		if err != nil || p.Settings == nil {
			return err
		}
		return tx.Model(p.Settings).
			Select("member_can_update_site", "member_can_add_site_to_project").
			Updates(p.Settings).Error
	})
}

func (s *ProjectsStore) ArchiveProject(ctx context.Context, p *model.Project, archived bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Project{}).Where("id = ?", p.ID).Update("archived", archived).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Site{}).Where("project_id = ?", p.ID).Update("archived", archived).Error; err != nil {
			return err
		}
		p.Archived = archived
		return nil
	})
}

func (s *ProjectsStore) DeleteProject(ctx context.Context, p *model.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", p.ID).Delete(&model.Site{}).Error; err != nil {
			return err
		}
		if err := tx.Where("membership_list_id = ?", p.MembershipListID).Delete(&model.Membership{}).Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
}

func (s *ProjectsStore) MarkSeen(ctx context.Context, projectID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO project_seen_by (project_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		projectID, userID,
	).Error
}

func (s *ProjectsStore) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.ProjectRole, error) {
	var roles []string
	err := s.db.WithContext(ctx).Table("memberships").
		Joins("JOIN projects ON projects.membership_list_id = memberships.membership_list_id").
		Where("projects.id = ? AND memberships.user_id = ?", projectID, userID).
		Where("memberships.membership_status = ? AND memberships.deleted_at IS NULL", model.MembershipApproved).
		Pluck("memberships.user_role", &roles).Error
	if err != nil || len(roles) == 0 {
		return "", err
	}
	return model.ProjectRole(roles[0]), nil
}
