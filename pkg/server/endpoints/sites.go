package endpoints

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/validation"
)

type siteInput struct {
	Name      *string    `json:"name"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Elevation *float64   `json:"elevation"`
	Privacy   *string    `json:"privacy" validate:"omitempty,oneof=PRIVATE PUBLIC"`
	ProjectID *uuid.UUID `json:"projectId"`
}

func (in *siteInput) apply(s *model.Site) {
	setIfPresent(&s.Name, in.Name)
	setIfPresent(&s.Privacy, in.Privacy)
	if in.Latitude != nil {
		s.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		s.Longitude = *in.Longitude
	}
	if in.Elevation != nil {
		s.Elevation = in.Elevation
	}
}

type siteTransferInput struct {
	SiteIDs   []uuid.UUID `json:"siteIds" validate:"required,min=1"`
	ProjectID uuid.UUID   `json:"projectId" validate:"required"`
}

type siteTransferResult struct {
	Project      *model.Project `json:"project"`
	Updated      []uuid.UUID    `json:"updated"`
	BadPerm      []uuid.UUID    `json:"badPermissions"`
	DoesNotExist []uuid.UUID    `json:"doesNotExist"`
}

type siteNoteInput struct {
	Content string `json:"content" validate:"required"`
}

// RegisterSitesEndpoints registers sites and site notes.
func RegisterSitesEndpoints(s *server.Server) {
	sitesRouter := s.API().PathPrefix("/sites").Subrouter()
	sitesRouter.Use(s.JWTMiddleware.Middleware)

	// GET /sites?project=<id> - Sites of one project, or the caller's own and project sites
	sitesRouter.HandleFunc("", handleListSites(s.SitesStore, s.ProjectsStore, s.Checker)).Methods("GET")
	sitesRouter.HandleFunc("", handleCreateSite(s.SitesStore, s.ProjectsStore, s.Checker)).Methods("POST")
	// POST /sites/transfer - Move sites into a project
	sitesRouter.HandleFunc("/transfer", handleTransferSites(s.SitesStore, s.ProjectsStore, s.Checker)).Methods("POST")
	sitesRouter.HandleFunc("/{id}", handleGetSite(s.SitesStore, s.Checker)).Methods("GET")
	sitesRouter.HandleFunc("/{id}", handleUpdateSite(s.SitesStore, s.ProjectsStore, s.Checker)).Methods("PUT")
	sitesRouter.HandleFunc("/{id}", handleDeleteSite(s.SitesStore, s.Checker)).Methods("DELETE")
	sitesRouter.HandleFunc("/{id}/notes", handleCreateSiteNote(s.SitesStore, s.SiteNotesStore, s.Checker)).Methods("POST")

	notesRouter := s.API().PathPrefix("/site-notes").Subrouter()
	notesRouter.Use(s.JWTMiddleware.Middleware)
	notesRouter.HandleFunc("/{id}", handleUpdateSiteNote(s.SiteNotesStore, s.Checker)).Methods("PUT")
	notesRouter.HandleFunc("/{id}", handleDeleteSiteNote(s.SiteNotesStore, s.Checker)).Methods("DELETE")
}

func siteResource(s *model.Site) audit.Resource {
	return auditResource(s.ID, "site", s.Name, nil)
}

func loadSite(w http.ResponseWriter, r *http.Request, sites store.SitesStore, action string) *model.Site {
	id, err := pathID(r, "id")
	if err != nil {
		notFound(w, "Site")
		return nil
	}
	site, err := sites.FindSite(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "Site", action, err)
		return nil
	}
	return site
}

func handleListSites(sites store.SitesStore, projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		if raw := r.URL.Query().Get("project"); raw != "" {
			projectID, err := uuid.Parse(raw)
			if err != nil {
				notFound(w, "Project")
				return
			}
			p, err := projects.FindProject(ctx, projectID)
			if err != nil {
				respondWithServiceError(w, r, "Project", "view", err)
				return
			}
			ok, err := checker.CheckProject(user, permission.ProjectLeave, permission.Context{Project: p})
			if !allowed(w, r, ok, err, "view", "Site") {
				return
			}
			list, err := sites.ListSites(ctx, store.SiteFilter{ProjectID: &p.ID})
			if err != nil {
				internalError(w, r, err)
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]interface{}{"sites": list})
			return
		}

		owned, err := sites.ListSites(ctx, store.SiteFilter{OwnerID: &user.ID})
		if err != nil {
			internalError(w, r, err)
			return
		}
		affiliated, err := sites.ListSites(ctx, store.SiteFilter{MemberID: &user.ID})
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"sites": append(owned, affiliated...)})
	}
}

func handleGetSite(sites store.SitesStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site := loadSite(w, r, sites, "view")
		if site == nil {
			return
		}
		if !checker.CanViewSite(identity.User(r.Context()), site) {
			notAllowed(w, "view", "Site")
			return
		}
		respondWithJSON(w, http.StatusOK, site)
	}
}

// handleCreateSite creates an unaffiliated site owned by the caller, or a
// project site when projectId is set.
func handleCreateSite(sites store.SitesStore, projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		var in siteInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Site", err)
			return
		}
		site := &model.Site{Privacy: string(model.PrivacyPrivate)}
		in.apply(site)

		if in.ProjectID != nil {
			p, err := projects.FindProject(ctx, *in.ProjectID)
			if err != nil {
				respondWithServiceError(w, r, "Project", "add_new_site", err)
				return
			}
			ok, err := checker.CheckProject(user, permission.ProjectAddNewSite, permission.Context{Project: p})
			if !allowed(w, r, ok, err, "add_new_site", "Site") {
				return
			}
			site.AddToProject(p)
		} else {
			ok, err := checker.CheckSite(user, permission.SiteCreate, permission.Context{})
			if !allowed(w, r, ok, err, "create", "Site") {
				return
			}
			site.AddOwner(user)
		}
		if err := validation.Validate(site); err != nil {
			invalidData(w, "Site", err)
			return
		}
		if err := sites.CreateSite(ctx, site); err != nil {
			respondWithServiceError(w, r, "Site", "create", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, siteResource(site), nil))
		respondWithJSON(w, http.StatusCreated, site)
	}
}

// handleUpdateSite edits the site's settings. A projectId moves the site
// into that project.
func handleUpdateSite(sites store.SitesStore, projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		site := loadSite(w, r, sites, "update_settings")
		if site == nil {
			return
		}
		ok, err := checker.CheckSite(user, permission.SiteUpdateSettings, permission.Context{Site: site})
		if !allowed(w, r, ok, err, "update_settings", "Site") {
			return
		}
		var in siteInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Site", err)
			return
		}
		if in.ProjectID != nil && (site.ProjectID == nil || *site.ProjectID != *in.ProjectID) {
			target, err := projects.FindProject(ctx, *in.ProjectID)
			if err != nil {
				respondWithServiceError(w, r, "Project", "update_settings", err)
				return
			}
			var action permission.ProjectAction
			c := permission.Context{Project: target, Site: site, TargetProject: target}
			if site.IsUnaffiliated() {
				action = permission.ProjectAddUnaffiliatedSite
			} else {
				action = permission.ProjectTransferAffiliatedSite
				c.SourceProject = site.Project
			}
			ok, err := checker.CheckProject(user, action, c)
			if !allowed(w, r, ok, err, "update_settings", "Site") {
				return
			}
			site.AddToProject(target)
		}
		in.apply(site)
		if err := validation.Validate(site); err != nil {
			invalidData(w, "Site", err)
			return
		}
		if err := sites.UpdateSite(ctx, site); err != nil {
			respondWithServiceError(w, r, "Site", "update_settings", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, siteResource(site), nil))
		respondWithJSON(w, http.StatusOK, site)
	}
}

func handleDeleteSite(sites store.SitesStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		site := loadSite(w, r, sites, "delete")
		if site == nil {
			return
		}
		ok, err := checker.CheckSite(user, permission.SiteDelete, permission.Context{Site: site})
		if !allowed(w, r, ok, err, "delete", "Site") {
			return
		}
		if err := sites.DeleteSite(r.Context(), site); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, siteResource(site), nil))
		respondWithJSON(w, http.StatusOK, site)
	}
}

// handleTransferSites moves every site the caller may move and reports
// the others by reason.
func handleTransferSites(sites store.SitesStore, projects store.ProjectsStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		var in siteTransferInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Site", err)
			return
		}
		target, err := projects.FindProject(ctx, in.ProjectID)
		if err != nil {
			respondWithServiceError(w, r, "Project", "transfer", err)
			return
		}
		res := siteTransferResult{
			Project:      target,
			Updated:      []uuid.UUID{},
			BadPerm:      []uuid.UUID{},
			DoesNotExist: []uuid.UUID{},
		}
		for _, id := range in.SiteIDs {
			site, err := sites.FindSite(ctx, id)
			if err != nil {
				res.DoesNotExist = append(res.DoesNotExist, id)
				continue
			}
			c := permission.Context{Project: target, Site: site, TargetProject: target}
			action := permission.ProjectAddUnaffiliatedSite
			if !site.IsUnaffiliated() {
				action = permission.ProjectTransferAffiliatedSite
				c.SourceProject = site.Project
			}
			ok, err := checker.CheckProject(user, action, c)
			if err != nil {
				internalError(w, r, err)
				return
			}
			if !ok {
				res.BadPerm = append(res.BadPerm, id)
				continue
			}
			res.Updated = append(res.Updated, id)
		}
		if len(res.Updated) > 0 {
			if err := sites.TransferSites(ctx, res.Updated, target.ID); err != nil {
				internalError(w, r, err)
				return
			}
			logAudit(r, audit.ChangeEvent(user, projectResource(target), audit.Metadata{"transferred_sites": res.Updated}))
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}

func handleCreateSiteNote(sites store.SitesStore, notes store.SiteNotesStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		site := loadSite(w, r, sites, "create_note")
		if site == nil {
			return
		}
		ok, err := checker.CheckSite(user, permission.SiteCreateNote, permission.Context{Site: site})
		if !allowed(w, r, ok, err, "create_note", "SiteNote") {
			return
		}
		var in siteNoteInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SiteNote", err)
			return
		}
		note := &model.SiteNote{SiteID: site.ID, AuthorID: user.ID, Author: user, Content: in.Content}
		if err := notes.CreateSiteNote(r.Context(), note); err != nil {
			respondWithServiceError(w, r, "SiteNote", "create_note", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, auditResource(note.ID, "site_note", site.Name, nil), nil))
		respondWithJSON(w, http.StatusCreated, note)
	}
}

func loadSiteNote(w http.ResponseWriter, r *http.Request, notes store.SiteNotesStore, action string) *model.SiteNote {
	id, err := pathID(r, "id")
	if err != nil {
		notFound(w, "SiteNote")
		return nil
	}
	note, err := notes.FindSiteNote(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "SiteNote", action, err)
		return nil
	}
	return note
}

func handleUpdateSiteNote(notes store.SiteNotesStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		note := loadSiteNote(w, r, notes, "edit_note")
		if note == nil {
			return
		}
		ok, err := checker.CheckSite(user, permission.SiteEditNote, permission.Context{Site: note.Site, SiteNote: note})
		if !allowed(w, r, ok, err, "edit_note", "SiteNote") {
			return
		}
		var in siteNoteInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SiteNote", err)
			return
		}
		note.Content = in.Content
		if err := notes.UpdateSiteNote(r.Context(), note); err != nil {
			respondWithServiceError(w, r, "SiteNote", "edit_note", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(note.ID, "site_note", "", nil), nil))
		respondWithJSON(w, http.StatusOK, note)
	}
}

func handleDeleteSiteNote(notes store.SiteNotesStore, checker *permission.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		note := loadSiteNote(w, r, notes, "delete_note")
		if note == nil {
			return
		}
		ok, err := checker.CheckSite(user, permission.SiteDeleteNote, permission.Context{Site: note.Site, SiteNote: note})
		if !allowed(w, r, ok, err, "delete_note", "SiteNote") {
			return
		}
		if err := notes.DeleteSiteNote(r.Context(), note); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, auditResource(note.ID, "site_note", "", nil), nil))
		respondWithJSON(w, http.StatusOK, note)
	}
}
