package endpoints

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/validation"
)

type groupInput struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Website        *string `json:"website"`
	Email          *string `json:"email"`
	MembershipType *string `json:"membershipType" validate:"omitempty,oneof=open closed"`
	EnrollMethod   *string `json:"enrollMethod" validate:"omitempty,oneof=join invite both"`
}

// apply copies the set fields onto g and its membership list.
func (in *groupInput) apply(g *model.Group) {
	setIfPresent(&g.Name, in.Name)
	setIfPresent(&g.Description, in.Description)
	setIfPresent(&g.Website, in.Website)
	setIfPresent(&g.Email, in.Email)
	if in.MembershipType == nil && in.EnrollMethod == nil {
		return
	}
	if g.MembershipList == nil {
		g.MembershipList = &model.MembershipList{EnrollMethod: model.EnrollJoin, MembershipType: model.MembershipTypeOpen}
	}
	if in.MembershipType != nil {
		g.MembershipList.MembershipType = model.ParseMembershipType(*in.MembershipType)
	}
	if in.EnrollMethod != nil {
		g.MembershipList.EnrollMethod = model.EnrollMethod(*in.EnrollMethod)
	}
}

func setIfPresent(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

type groupAssociationInput struct {
	ParentGroupSlug string `json:"parentGroupSlug" validate:"required"`
	ChildGroupSlug  string `json:"childGroupSlug" validate:"required"`
}

// RegisterGroupsEndpoints registers groups, their memberships and group
// associations.
func RegisterGroupsEndpoints(s *server.Server) {
	groupsRouter := s.API().PathPrefix("/groups").Subrouter()
	groupsRouter.Use(s.JWTMiddleware.Middleware)

	groupsRouter.HandleFunc("", handleListGroups(s.GroupsStore)).Methods("GET")
	groupsRouter.HandleFunc("", handleCreateGroup(s.GroupsStore)).Methods("POST")
	groupsRouter.HandleFunc("/{slug}", handleGetGroup(s.GroupsStore)).Methods("GET")
	groupsRouter.HandleFunc("/{slug}", handleUpdateGroup(s.GroupsStore)).Methods("PUT")
	groupsRouter.HandleFunc("/{slug}", handleDeleteGroup(s.GroupsStore)).Methods("DELETE")

	resolve := groupRoster(s.GroupsStore)
	groupsRouter.HandleFunc("/{slug}/memberships", handleListMemberships(resolve, s.MembershipsStore)).Methods("GET")
	groupsRouter.HandleFunc("/{slug}/memberships", handleSaveMemberships(resolve, s.MembershipsStore, s.Notifier, s.Hub)).Methods("POST")
	groupsRouter.HandleFunc("/{slug}/memberships/{mid}", handleUpdateMembership(resolve, s.MembershipsStore, s.Notifier, s.Hub)).Methods("PUT")
	groupsRouter.HandleFunc("/{slug}/memberships/{mid}", handleDeleteMembership(resolve, s.MembershipsStore)).Methods("DELETE")

	associations := s.API().PathPrefix("/group-associations").Subrouter()
	associations.Use(s.JWTMiddleware.Middleware)
	associations.HandleFunc("", handleCreateGroupAssociation(s.GroupsStore)).Methods("POST")
	associations.HandleFunc("/{id}", handleDeleteGroupAssociation(s.GroupsStore)).Methods("DELETE")
}

func groupRoster(groups store.GroupsStore) rosterResolver {
	return func(r *http.Request) (*roster, error) {
		g, err := groups.FindGroup(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			return nil, err
		}
		return &roster{kind: "group", id: g.ID, name: g.Name, list: g.MembershipList, group: g}, nil
	}
}

func groupResource(g *model.Group) audit.Resource {
	return auditResource(g.ID, "group", g.Name, g)
}

func handleListGroups(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := groups.ListGroups(r.Context(), listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

func handleGetGroup(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := groups.FindGroup(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			respondWithServiceError(w, r, "Group", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, g)
	}
}

func handleCreateGroup(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in groupInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Group", err)
			return
		}
		g := &model.Group{}
		in.apply(g)
		if err := validation.Validate(g); err != nil {
			invalidData(w, "Group", err)
			return
		}
		if err := groups.CreateGroup(r.Context(), g, user); err != nil {
			respondWithServiceError(w, r, "Group", "create", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, groupResource(g), nil))
		respondWithJSON(w, http.StatusCreated, g)
	}
}

func handleUpdateGroup(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		g, err := groups.FindGroup(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			respondWithServiceError(w, r, "Group", "update", err)
			return
		}
		if !permission.CanChangeGroup(user, g) {
			notAllowed(w, "update", "Group")
			return
		}
		var in groupInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Group", err)
			return
		}
		in.apply(g)
		if err := validation.Validate(g); err != nil {
			invalidData(w, "Group", err)
			return
		}
		if err := groups.UpdateGroup(r.Context(), g); err != nil {
			respondWithServiceError(w, r, "Group", "update", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, groupResource(g), nil))
		respondWithJSON(w, http.StatusOK, g)
	}
}

func handleDeleteGroup(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		g, err := groups.FindGroup(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			respondWithServiceError(w, r, "Group", "delete", err)
			return
		}
		if !permission.CanDeleteGroup(user, g) {
			notAllowed(w, "delete", "Group")
			return
		}
		if err := groups.DeleteGroup(r.Context(), g); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, groupResource(g), nil))
		respondWithJSON(w, http.StatusOK, g)
	}
}

func handleCreateGroupAssociation(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in groupAssociationInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "GroupAssociation", err)
			return
		}
		parent, err := groups.FindGroup(r.Context(), in.ParentGroupSlug)
		if err != nil {
			respondWithServiceError(w, r, "Group", "create", err)
			return
		}
		child, err := groups.FindGroup(r.Context(), in.ChildGroupSlug)
		if err != nil {
			respondWithServiceError(w, r, "Group", "create", err)
			return
		}
		if parent.ID == child.ID {
			badRequest(w, "invalid_data", "a group cannot be associated with itself")
			return
		}
		if !permission.CanChangeGroup(user, parent) {
			notAllowed(w, "create", "GroupAssociation")
			return
		}
		a := &model.GroupAssociation{ParentGroupID: parent.ID, ChildGroupID: child.ID}
		if err := groups.CreateGroupAssociation(r.Context(), a); err != nil {
			respondWithServiceError(w, r, "GroupAssociation", "create", err)
			return
		}
		a.ParentGroup, a.ChildGroup = parent, child
		logAudit(r, audit.CreateEvent(user, auditResource(a.ID, "group_association", parent.Name+" > "+child.Name, nil), nil))
		respondWithJSON(w, http.StatusCreated, a)
	}
}

func handleDeleteGroupAssociation(groups store.GroupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "GroupAssociation")
			return
		}
		a, err := groups.FindGroupAssociation(r.Context(), id)
		if err != nil {
			respondWithServiceError(w, r, "GroupAssociation", "delete", err)
			return
		}
		if !permission.CanDeleteGroupAssociation(user, a.ParentGroup, a.ChildGroup) {
			notAllowed(w, "delete", "GroupAssociation")
			return
		}
		if err := groups.DeleteGroupAssociation(r.Context(), a); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, auditResource(a.ID, "group_association", "", nil), nil))
		respondWithJSON(w, http.StatusOK, a)
	}
}
