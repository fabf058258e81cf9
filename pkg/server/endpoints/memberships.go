package endpoints

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

const groupManagerRole = string(model.GroupRoleManager)

// roster is a group or landscape membership list. group is set for groups
// and enables the membership emails.
type roster struct {
	kind  string
	id    uuid.UUID
	name  string
	list  *model.MembershipList
	group *model.Group
}

type rosterResolver func(r *http.Request) (*roster, error)

type membershipSave struct {
	UserEmails       []string `json:"userEmails" validate:"required,min=1,dive,email"`
	UserRole         string   `json:"userRole"`
	MembershipStatus string   `json:"membershipStatus"`
}

type membershipUpdate struct {
	UserRole         string `json:"userRole"`
	MembershipStatus string `json:"membershipStatus"`
}

// membershipNotice is pushed over the websocket when a membership changes.
type membershipNotice struct {
	Type   string    `json:"type"`
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
}

func managerCountError(w http.ResponseWriter, action string) {
	respondWithError(w, http.StatusForbidden, apiError{
		Code:    action + "_not_allowed",
		Model:   "Membership",
		Message: "manager_count",
	})
}

func pushMembership(hub server.Pusher, ro *roster, m *model.Membership) {
	if hub == nil || m.UserID == nil {
		return
	}
	hub.NotifyUser(*m.UserID, membershipNotice{
		Type:   "membership",
		Kind:   ro.kind,
		ID:     ro.id,
		Name:   ro.name,
		Status: string(m.MembershipStatus),
	})
}

func membershipResource(m *model.Membership) audit.Resource {
	return auditResource(m.ID, "membership", m.UserEmail(), m)
}

func handleListMemberships(resolve rosterResolver, memberships store.MembershipsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ro, err := resolve(r)
		if err != nil {
			respondWithServiceError(w, r, "MembershipList", "view", err)
			return
		}
		list, err := memberships.ListMemberships(r.Context(), ro.list.ID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"membershipList": ro.list,
			"memberships":    list,
		})
	}
}

func handleSaveMemberships(resolve rosterResolver, memberships store.MembershipsStore, notifier server.Notifier, hub server.Pusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		ro, err := resolve(r)
		if err != nil {
			respondWithServiceError(w, r, "MembershipList", "save", err)
			return
		}
		var in membershipSave
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Membership", err)
			return
		}
		role := in.UserRole
		if role == "" {
			role = string(model.GroupRoleMember)
		}
		if !model.GroupRole(role).Valid() {
			invalidData(w, "Membership", errors.New("invalid role "+role))
			return
		}

		list := ro.list
		manager := permission.CanChangeGroupMembership(user, list)
		if !manager && !permission.CanAddGroupMembership(user, list) {
			notAllowed(w, "save", "Membership")
			return
		}
		closed := list.MembershipType == model.MembershipTypeClosed
		status := model.MembershipApproved
		if closed {
			status = model.MembershipPending
			if manager && in.MembershipStatus != "" {
				status = model.ParseMembershipStatus(in.MembershipStatus)
			}
		}

		log := logging.Component("memberships")
		saved := make([]*model.Membership, 0, len(in.UserEmails))
		for _, email := range in.UserEmails {
			if !manager && !strings.EqualFold(strings.TrimSpace(email), user.Email) {
				notAllowed(w, "save", "Membership")
				return
			}
			isNew := false
			validate := func(v collaboration.ValidationInput) error {
				isNew = v.Current == nil
				if manager {
					return nil
				}
				if v.Current != nil || v.Role != string(model.GroupRoleMember) {
					return collaboration.ErrCannotRequest
				}
				return nil
			}
			m, approved, err := collaboration.SaveMembership(ctx, memberships, list, collaboration.SaveInput{
				Email:  email,
				Role:   role,
				Status: &status,
			}, validate)
			if err != nil {
				respondWithServiceError(w, r, "Membership", "save", err)
				return
			}
			saved = append(saved, m)

			if isNew {
				logAudit(r, audit.CreateEvent(user, membershipResource(m), audit.Metadata{ro.kind: ro.id.String()}))
			} else {
				logAudit(r, audit.ChangeEvent(user, membershipResource(m), audit.Metadata{ro.kind: ro.id.String()}))
			}
			pushMembership(hub, ro, m)

			if notifier == nil || ro.group == nil || !closed || m.User == nil {
				continue
			}
			if isNew && !m.IsApproved() {
				if err := notifier.SendMembershipRequest(ctx, m.User, ro.group, collaboration.Managers(list, groupManagerRole)); err != nil {
					log.Warn().Err(err).Str("membership_id", m.ID.String()).Msg("failed to send membership request email")
				}
			}
			if approved {
				if err := notifier.SendMembershipApproval(ctx, m.User, ro.group); err != nil {
					log.Warn().Err(err).Str("membership_id", m.ID.String()).Msg("failed to send membership approval email")
				}
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"memberships": saved})
	}
}

func handleUpdateMembership(resolve rosterResolver, memberships store.MembershipsStore, notifier server.Notifier, hub server.Pusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		ro, err := resolve(r)
		if err != nil {
			respondWithServiceError(w, r, "MembershipList", "update", err)
			return
		}
		membershipID, err := pathID(r, "mid")
		if err != nil {
			notFound(w, "Membership")
			return
		}
		var in membershipUpdate
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "Membership", err)
			return
		}
		if !permission.CanChangeGroupMembership(user, ro.list) {
			notAllowed(w, "update", "Membership")
			return
		}
		current, err := memberships.GetMembership(ctx, ro.list.ID, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "Membership", "update", err)
			return
		}
		role := in.UserRole
		if role == "" {
			role = current.UserRole
		}
		if !model.GroupRole(role).Valid() {
			invalidData(w, "Membership", errors.New("invalid role "+role))
			return
		}
		if current.UserRole == groupManagerRole && role != groupManagerRole &&
			collaboration.ManagersCount(ro.list, groupManagerRole) <= 1 {
			managerCountError(w, "update")
			return
		}
		saveIn := collaboration.SaveInput{Email: current.UserEmail(), Role: role}
		if in.MembershipStatus != "" {
			status := model.ParseMembershipStatus(in.MembershipStatus)
			saveIn.Status = &status
		}
		m, approved, err := collaboration.SaveMembership(ctx, memberships, ro.list, saveIn, nil)
		if err != nil {
			respondWithServiceError(w, r, "Membership", "update", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, membershipResource(m), audit.Metadata{ro.kind: ro.id.String()}))
		pushMembership(hub, ro, m)
		if approved && notifier != nil && ro.group != nil && m.User != nil {
			if err := notifier.SendMembershipApproval(ctx, m.User, ro.group); err != nil {
				logging.Component("memberships").Warn().Err(err).Str("membership_id", m.ID.String()).Msg("failed to send membership approval email")
			}
		}
		respondWithJSON(w, http.StatusOK, m)
	}
}

func handleDeleteMembership(resolve rosterResolver, memberships store.MembershipsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		ro, err := resolve(r)
		if err != nil {
			respondWithServiceError(w, r, "MembershipList", "delete", err)
			return
		}
		membershipID, err := pathID(r, "mid")
		if err != nil {
			notFound(w, "Membership")
			return
		}
		m, err := memberships.GetMembership(ctx, ro.list.ID, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "Membership", "delete", err)
			return
		}
		if !permission.CanDeleteGroupMembership(user, ro.list, m) {
			notAllowed(w, "delete", "Membership")
			return
		}
		if m.UserRole == groupManagerRole && m.IsApproved() &&
			collaboration.ManagersCount(ro.list, groupManagerRole) <= 1 {
			managerCountError(w, "delete")
			return
		}
		if err := memberships.DeleteMembership(ctx, m); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, membershipResource(m), audit.Metadata{ro.kind: ro.id.String()}))
		respondWithJSON(w, http.StatusOK, m)
	}
}
