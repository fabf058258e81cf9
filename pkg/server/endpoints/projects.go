package endpoints

import (
	"errors"
	"net/http"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/soil"
	"github.com/techmatters/terraso-go/pkg/validation"
)

const projectManagerRole = string(model.ProjectRoleManager)

var errAlreadyMember = errors.New("user is already a member")

type projectInput struct {
	Name                      *string `json:"name"`
	Description               *string `json:"description"`
	Privacy                   *string `json:"privacy" validate:"omitempty,oneof=PRIVATE PUBLIC"`
	MeasurementUnits          *string `json:"measurementUnits" validate:"omitempty,oneof=ENGLISH IMPERIAL METRIC"`
	SiteInstructions          *string `json:"siteInstructions"`
	MemberCanUpdateSite       *bool   `json:"memberCanUpdateSite"`
	MemberCanAddSiteToProject *bool   `json:"memberCanAddSiteToProject"`
}

func (in *projectInput) apply(p *model.Project) {
	setIfPresent(&p.Name, in.Name)
	setIfPresent(&p.Description, in.Description)
	if in.Privacy != nil {
		p.Privacy = model.ProjectPrivacy(*in.Privacy)
	}
	if in.MeasurementUnits != nil {
		p.MeasurementUnits = model.MeasurementUnits(*in.MeasurementUnits)
	}
	if in.SiteInstructions != nil {
		p.SiteInstructions = in.SiteInstructions
	}
	if in.MemberCanUpdateSite == nil && in.MemberCanAddSiteToProject == nil {
		return
	}
	if p.Settings == nil {
		p.Settings = &model.ProjectSettings{}
	}
	setBool(&p.Settings.MemberCanUpdateSite, in.MemberCanUpdateSite)
	setBool(&p.Settings.MemberCanAddSiteToProject, in.MemberCanAddSiteToProject)
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

type projectMemberInput struct {
	UserEmail string `json:"userEmail" validate:"required,email"`
	UserRole  string `json:"userRole" validate:"required,oneof=manager contributor viewer"`
}

type projectRoleInput struct {
	UserRole string `json:"userRole" validate:"required,oneof=manager contributor viewer"`
}

type archiveInput struct {
	Archived bool `json:"archived"`
}

// RegisterProjectsEndpoints registers projects, project memberships and
// project soil settings.
func RegisterProjectsEndpoints(s *server.Server) {
	projectsRouter := s.API().PathPrefix("/projects").Subrouter()
	projectsRouter.Use(s.JWTMiddleware.Middleware)

	// GET /projects - Projects the caller is a member of
	projectsRouter.HandleFunc("", handleListProjects(s.ProjectsStore)).Methods("GET")
	// POST /projects - Create a project with the caller as manager
	projectsRouter.HandleFunc("", handleCreateProject(s.ProjectsStore, s.SoilDataStore, s.Checker)).Methods("POST")
	projectsRouter.HandleFunc("/{id}", handleGetProject(s.ProjectsStore, s.Checker)).Methods("GET")
	projectsRouter.HandleFunc("/{id}", handleUpdateProject(s.ProjectsStore, s.Checker)).Methods("PUT")
	projectsRouter.HandleFunc("/{id}", handleDeleteProject(s.ProjectsStore, s.Checker)).Methods("DELETE")
	// POST /projects/{id}/archive - Archive or restore a project and its sites
	projectsRouter.HandleFunc("/{id}/archive", handleArchiveProject(s.ProjectsStore, s.Checker)).Methods("POST")
	// POST /projects/{id}/seen - Mark the project as seen by the caller
	projectsRouter.HandleFunc("/{id}/seen", handleMarkProjectSeen(s.ProjectsStore, s.Checker)).Methods("POST")

	projectsRouter.HandleFunc("/{id}/memberships", handleListProjectMemberships(s.ProjectsStore, s.MembershipsStore, s.Checker)).Methods("GET")
	projectsRouter.HandleFunc("/{id}/memberships", handleAddProjectMember(s.ProjectsStore, s.MembershipsStore, s.Checker, s.Notifier, s.Hub)).Methods("POST")
	projectsRouter.HandleFunc("/{id}/memberships/{mid}", handleUpdateProjectMember(s.ProjectsStore, s.MembershipsStore, s.Checker)).Methods("PUT")
	projectsRouter.HandleFunc("/{id}/memberships/{mid}", handleDeleteProjectMember(s.ProjectsStore, s.MembershipsStore, s.Checker)).Methods("DELETE")

	// GET /projects/{id}/soil-settings - Required measurements and depth intervals
	projectsRouter.HandleFunc("/{id}/soil-settings", handleGetProjectSoilSettings(s.Soil)).Methods("GET")
	projectsRouter.HandleFunc("/{id}/soil-settings", handleUpdateProjectSoilSettings(s.Soil)).Methods("PUT")
	projectsRouter.HandleFunc("/{id}/depth-intervals", handleUpdateProjectDepthInterval(s.Soil)).Methods("PUT")
	projectsRouter.HandleFunc("/{id}/depth-intervals", handleDeleteProjectDepthInterval(s.Soil)).Methods("DELETE")
}

func projectResource(p *model.Project) audit.Resource {
	return auditResource(p.ID, "project", p.Name, nil)
}

// loadProject resolves the {id} path variable. It writes the error
// response and returns nil when the project can't be loaded.
func loadProject(w http.ResponseWriter, r *http.Request, projects store.ProjectsStore, action string) *model.Project {
	id, err := pathID(r, "id")
	if err != nil {
		notFound(w, "Project")
		return nil
	}
	p, err := projects.FindProject(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "Project", action, err)
		return nil
	}
	return p
}

func handleListProjects(projects store.ProjectsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		page, err := projects.ListProjects(r.Context(), user.ID, listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

func handleGetProject(projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		p := loadProject(w, r, projects, "view")
		if p == nil {
			return
		}
		if p.Privacy != model.PrivacyPublic {
			ok, err := checker.CheckProject(user, permission.ProjectLeave, permission.Context{Project: p})
			if !allowed(w, r, ok, err, "view", "Project") {
				return
			}
		}
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleCreateProject(projects store.ProjectsStore, soilStore store.SoilDataStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		ok, err := checker.CheckProject(user, permission.ProjectCreate, permission.Context{})
		if !allowed(w, r, ok, err, "create", "Project") {
			return
		}
		var in projectInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Project", err)
			return
		}
		p := &model.Project{}
		in.apply(p)
		if err := validation.Validate(p); err != nil {
			invalidData(w, "Project", err)
			return
		}
		if err := projects.CreateProject(ctx, p, user); err != nil {
			respondWithServiceError(w, r, "Project", "create", err)
			return
		}
		settings, err := soil.CreateProjectSoilSettings(ctx, soilStore, p.ID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		p.SoilSettings = settings
		logAudit(r, audit.CreateEvent(user, projectResource(p), nil))
		respondWithJSON(w, http.StatusCreated, p)
	}
}

func handleUpdateProject(projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		p := loadProject(w, r, projects, "update")
		if p == nil {
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectUpdateRequirements, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "update", "Project") {
			return
		}
		var in projectInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Project", err)
			return
		}
		in.apply(p)
		if err := validation.Validate(p); err != nil {
			invalidData(w, "Project", err)
			return
		}
		if err := projects.UpdateProject(r.Context(), p); err != nil {
			respondWithServiceError(w, r, "Project", "update", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, projectResource(p), nil))
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleDeleteProject(projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		p := loadProject(w, r, projects, "delete")
		if p == nil {
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectDelete, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "delete", "Project") {
			return
		}
		if err := projects.DeleteProject(r.Context(), p); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, projectResource(p), nil))
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleArchiveProject(projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		p := loadProject(w, r, projects, "archive")
		if p == nil {
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectArchive, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "archive", "Project") {
			return
		}
		var in archiveInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Project", err)
			return
		}
		if err := projects.ArchiveProject(r.Context(), p, in.Archived); err != nil {
			internalError(w, r, err)
			return
		}
		p.Archived = in.Archived
		logAudit(r, audit.ChangeEvent(user, projectResource(p), audit.Metadata{"archived": in.Archived}))
		respondWithJSON(w, http.StatusOK, p)
	}
}

func handleMarkProjectSeen(projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		p := loadProject(w, r, projects, "view")
		if p == nil {
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectLeave, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "view", "Project") {
			return
		}
		if err := projects.MarkSeen(r.Context(), p.ID, user.ID); err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]bool{"seen": true})
	}
}

func handleListProjectMemberships(projects store.ProjectsStore, memberships store.MembershipsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		p := loadProject(w, r, projects, "view")
		if p == nil {
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectLeave, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "view", "ProjectMembership") {
			return
		}
		list, err := memberships.ListMemberships(r.Context(), p.MembershipListID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"memberships": list})
	}
}

func handleAddProjectMember(projects store.ProjectsStore, memberships store.MembershipsStore, checker *permission.Checker, notifier server.Notifier, hub server.Pusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		p := loadProject(w, r, projects, "add_member")
		if p == nil {
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectAddMember, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "add_member", "ProjectMembership") {
			return
		}
		var in projectMemberInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "ProjectMembership", err)
			return
		}
		invitee, err := memberships.FindUserByEmail(ctx, in.UserEmail)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if invitee == nil {
			notFound(w, "User")
			return
		}
		status := model.MembershipApproved
		m, _, err := collaboration.SaveMembership(ctx, memberships, p.MembershipList, collaboration.SaveInput{
			Email:  invitee.Email,
			Role:   in.UserRole,
			Status: &status,
		}, func(v collaboration.ValidationInput) error {
			if v.Current != nil && v.Current.IsApproved() {
				return errAlreadyMember
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, errAlreadyMember) {
				badRequest(w, "already_member", err.Error())
				return
			}
			respondWithServiceError(w, r, "ProjectMembership", "add_member", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, membershipResource(m), audit.Metadata{"project": p.ID.String()}))
		pushMembership(hub, &roster{kind: "project", id: p.ID, name: p.Name, list: p.MembershipList}, m)
		if notifier != nil {
			if err := notifier.SendProjectInvite(ctx, user, invitee, p, model.ProjectRole(in.UserRole)); err != nil {
				logging.Component("projects").Warn().Err(err).Str("project_id", p.ID.String()).Msg("failed to send project invite email")
			}
		}
		respondWithJSON(w, http.StatusCreated, m)
	}
}

func handleUpdateProjectMember(projects store.ProjectsStore, memberships store.MembershipsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		p := loadProject(w, r, projects, "change_user_role")
		if p == nil {
			return
		}
		membershipID, err := pathID(r, "mid")
		if err != nil {
			notFound(w, "ProjectMembership")
			return
		}
		ok, err := checker.CheckProject(user, permission.ProjectChangeUserRole, permission.Context{Project: p})
		if !allowed(w, r, ok, err, "change_user_role", "ProjectMembership") {
			return
		}
		var in projectRoleInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "ProjectMembership", err)
			return
		}
		current, err := memberships.GetMembership(ctx, p.MembershipListID, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "ProjectMembership", "change_user_role", err)
			return
		}
		if current.UserRole == projectManagerRole && in.UserRole != projectManagerRole &&
			collaboration.ManagersCount(p.MembershipList, projectManagerRole) <= 1 {
			managerCountError(w, "change_user_role")
			return
		}
		m, _, err := collaboration.SaveMembership(ctx, memberships, p.MembershipList, collaboration.SaveInput{
			Email: current.UserEmail(),
			Role:  in.UserRole,
		}, nil)
		if err != nil {
			respondWithServiceError(w, r, "ProjectMembership", "change_user_role", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, membershipResource(m), audit.Metadata{"project": p.ID.String()}))
		respondWithJSON(w, http.StatusOK, m)
	}
}

// handleDeleteProjectMember removes a member. Members may remove
// themselves; removing others takes a manager.
func handleDeleteProjectMember(projects store.ProjectsStore, memberships store.MembershipsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		p := loadProject(w, r, projects, "delete_user")
		if p == nil {
			return
		}
		membershipID, err := pathID(r, "mid")
		if err != nil {
			notFound(w, "ProjectMembership")
			return
		}
		m, err := memberships.GetMembership(ctx, p.MembershipListID, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "ProjectMembership", "delete_user", err)
			return
		}
		action, actionName := permission.ProjectDeleteUser, "delete_user"
		if m.BelongsTo(user) {
			action, actionName = permission.ProjectLeave, "leave"
		}
		ok, err := checker.CheckProject(user, action, permission.Context{Project: p})
		if !allowed(w, r, ok, err, actionName, "ProjectMembership") {
			return
		}
		if m.UserRole == projectManagerRole && m.IsApproved() &&
			collaboration.ManagersCount(p.MembershipList, projectManagerRole) <= 1 {
			managerCountError(w, actionName)
			return
		}
		if err := memberships.DeleteMembership(ctx, m); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, membershipResource(m), audit.Metadata{"project": p.ID.String()}))
		respondWithJSON(w, http.StatusOK, m)
	}
}

func handleGetProjectSoilSettings(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Project")
			return
		}
		settings, err := svc.ProjectSoilSettings(r.Context(), identity.User(r.Context()), id)
		if err != nil {
			respondWithServiceError(w, r, "ProjectSoilSettings", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, settings)
	}
}

func handleUpdateProjectSoilSettings(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Project")
			return
		}
		var in soil.ProjectSoilSettingsInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "ProjectSoilSettings", err)
			return
		}
		settings, err := svc.UpdateProjectSoilSettings(r.Context(), user, id, in)
		if err != nil {
			respondWithServiceError(w, r, "ProjectSoilSettings", "update_requirements", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(id, "project_soil_settings", "", nil), nil))
		respondWithJSON(w, http.StatusOK, settings)
	}
}

func handleUpdateProjectDepthInterval(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Project")
			return
		}
		var in soil.ProjectDepthIntervalInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "ProjectDepthInterval", err)
			return
		}
		settings, err := svc.UpdateProjectDepthInterval(r.Context(), user, id, in)
		if err != nil {
			respondWithServiceError(w, r, "ProjectDepthInterval", "change_required_depth_interval", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(id, "project_soil_settings", in.DepthInterval.String(), nil), nil))
		respondWithJSON(w, http.StatusOK, settings)
	}
}

func handleDeleteProjectDepthInterval(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Project")
			return
		}
		var interval model.DepthInterval
		if err := decodeJSON(r, &interval); err != nil {
			invalidData(w, "ProjectDepthInterval", err)
			return
		}
		settings, err := svc.DeleteProjectDepthInterval(r.Context(), user, id, interval)
		if err != nil {
			respondWithServiceError(w, r, "ProjectDepthInterval", "change_required_depth_interval", err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, auditResource(id, "project_soil_settings", interval.String(), nil), nil))
		respondWithJSON(w, http.StatusOK, settings)
	}
}
