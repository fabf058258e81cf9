package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/validation"
)

const maxStoryMapMediaSize = 50 << 20

type storyMapInput struct {
	Title         *string         `json:"title" validate:"omitempty,max=128"`
	Configuration json.RawMessage `json:"configuration"`
	IsPublished   *bool           `json:"isPublished"`
}

func (in *storyMapInput) apply(sm *model.StoryMap) {
	setIfPresent(&sm.Title, in.Title)
	if len(in.Configuration) > 0 {
		sm.Configuration = model.JSON(in.Configuration)
	}
	if in.IsPublished != nil {
		sm.IsPublished = *in.IsPublished
	}
}

type storyMapInvite struct {
	UserEmails []string `json:"userEmails" validate:"required,min=1,dive,email"`
	UserRole   string   `json:"userRole" validate:"omitempty,oneof=editor"`
}

type approveInput struct {
	Token string `json:"token" validate:"required"`
}

// RegisterStoryMapsEndpoints registers story maps, their media and
// editor invitations.
func RegisterStoryMapsEndpoints(s *server.Server) {
	public := s.API().PathPrefix("/story-maps").Subrouter()
	public.Use(s.JWTMiddleware.Optional)
	// GET /story-maps - Published story maps plus the caller's own
	public.HandleFunc("", handleListStoryMaps(s.StoryMapsStore)).Methods("GET")
	public.HandleFunc("/{id:[0-9a-f-]{36}}", handleGetStoryMap(s.StoryMapsStore)).Methods("GET")

	private := s.API().PathPrefix("/story-maps").Subrouter()
	private.Use(s.JWTMiddleware.Middleware)
	private.HandleFunc("", handleCreateStoryMap(s.StoryMapsStore)).Methods("POST")
	// POST /story-maps/memberships/approve - Accept an invitation by token
	private.HandleFunc("/memberships/approve", handleApproveStoryMapMembership(s.StoryMapsStore, s.MembershipsStore, s.JWT)).Methods("POST")
	private.HandleFunc("/{id}", handleUpdateStoryMap(s.StoryMapsStore)).Methods("PUT")
	private.HandleFunc("/{id}", handleDeleteStoryMap(s.StoryMapsStore)).Methods("DELETE")
	// POST /story-maps/{id}/media - Upload images and audio referenced by the configuration
	private.HandleFunc("/{id}/media", handleUploadStoryMapMedia(s.StoryMapsStore, s.StoryMapMedia)).Methods("POST")
	private.HandleFunc("/{id}/memberships", handleInviteStoryMapEditors(s.StoryMapsStore, s.MembershipsStore, s.Notifier)).Methods("POST")
	private.HandleFunc("/{id}/memberships/{mid}", handleDeleteStoryMapMembership(s.StoryMapsStore, s.MembershipsStore)).Methods("DELETE")
}

func storyMapResource(sm *model.StoryMap) audit.Resource {
	return auditResource(sm.ID, "story_map", sm.Title, nil)
}

func loadStoryMap(w http.ResponseWriter, r *http.Request, storyMaps store.StoryMapsStore, action string) *model.StoryMap {
	id, err := pathID(r, "id")
	if err != nil {
		notFound(w, "StoryMap")
		return nil
	}
	sm, err := storyMaps.FindStoryMap(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "StoryMap", action, err)
		return nil
	}
	return sm
}

func handleListStoryMaps(storyMaps store.StoryMapsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID *uuid.UUID
		if id, ok := identity.Get(r.Context()); ok {
			userID = &id.UserID
		}
		page, err := storyMaps.ListStoryMaps(r.Context(), userID, listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

func handleGetStoryMap(storyMaps store.StoryMapsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sm := loadStoryMap(w, r, storyMaps, "view")
		if sm == nil {
			return
		}
		if !permission.CanViewStoryMap(identity.User(r.Context()), sm) {
			// Unpublished maps are hidden from everyone else.
			notFound(w, "StoryMap")
			return
		}
		respondWithJSON(w, http.StatusOK, sm)
	}
}

func handleCreateStoryMap(storyMaps store.StoryMapsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in storyMapInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "StoryMap", err)
			return
		}
		sm := &model.StoryMap{CreatedByID: &user.ID, CreatedBy: user}
		in.apply(sm)
		if err := validation.Validate(sm); err != nil {
			invalidData(w, "StoryMap", err)
			return
		}
		if err := storyMaps.CreateStoryMap(r.Context(), sm); err != nil {
			respondWithServiceError(w, r, "StoryMap", "create", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, storyMapResource(sm), nil))
		respondWithJSON(w, http.StatusCreated, sm)
	}
}

func handleUpdateStoryMap(storyMaps store.StoryMapsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		sm := loadStoryMap(w, r, storyMaps, "change")
		if sm == nil {
			return
		}
		if !permission.CanChangeStoryMap(user, sm) {
			notAllowed(w, "change", "StoryMap")
			return
		}
		var in storyMapInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "StoryMap", err)
			return
		}
		in.apply(sm)
		if err := validation.Validate(sm); err != nil {
			invalidData(w, "StoryMap", err)
			return
		}
		if err := storyMaps.UpdateStoryMap(r.Context(), sm); err != nil {
			respondWithServiceError(w, r, "StoryMap", "change", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, storyMapResource(sm), audit.Metadata{"is_published": sm.IsPublished}))
		respondWithJSON(w, http.StatusOK, sm)
	}
}

func handleDeleteStoryMap(storyMaps store.StoryMapsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		sm := loadStoryMap(w, r, storyMaps, "delete")
		if sm == nil {
			return
		}
		if !permission.CanDeleteStoryMap(user, sm) {
			notAllowed(w, "delete", "StoryMap")
			return
		}
		if err := storyMaps.DeleteStoryMap(r.Context(), sm); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, storyMapResource(sm), nil))
		respondWithJSON(w, http.StatusOK, sm)
	}
}

// handleUploadStoryMapMedia stores every file of the "files" field under
// the story map and returns the URL of each by file name.
func handleUploadStoryMapMedia(storyMaps store.StoryMapsStore, media server.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		sm := loadStoryMap(w, r, storyMaps, "change")
		if sm == nil {
			return
		}
		if !permission.CanChangeStoryMap(user, sm) {
			notAllowed(w, "change", "StoryMap")
			return
		}
		if err := r.ParseMultipartForm(maxStoryMapMediaSize); err != nil {
			badRequest(w, "invalid_upload", err.Error())
			return
		}
		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			badRequest(w, "invalid_upload", "missing file field 'files'")
			return
		}
		urls := make(map[string]string, len(headers))
		for _, h := range headers {
			file, err := h.Open()
			if err != nil {
				badRequest(w, "invalid_upload", err.Error())
				return
			}
			u, err := media.UploadFile(r.Context(), sm.ID.String(), file, h.Size, h.Filename, h.Header.Get("Content-Type"))
			file.Close()
			if err != nil {
				internalError(w, r, err)
				return
			}
			urls[h.Filename] = u
		}
		logAudit(r, audit.ChangeEvent(user, storyMapResource(sm), audit.Metadata{"media_uploaded": len(urls)}))
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"urls": urls})
	}
}

// handleInviteStoryMapEditors invites editors by email. Invitations stay
// pending until accepted with the emailed token.
func handleInviteStoryMapEditors(storyMaps store.StoryMapsStore, memberships store.MembershipsStore, notifier server.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		sm := loadStoryMap(w, r, storyMaps, "save")
		if sm == nil {
			return
		}
		if !permission.CanSaveStoryMapMembership(user, sm) {
			notAllowed(w, "save", "StoryMapMembership")
			return
		}
		var in storyMapInvite
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "StoryMapMembership", err)
			return
		}
		status := model.MembershipPending
		var invited []*model.Membership
		for _, email := range in.UserEmails {
			if strings.EqualFold(strings.TrimSpace(email), user.Email) {
				continue
			}
			isNew := false
			m, _, err := collaboration.SaveMembership(ctx, memberships, sm.MembershipList, collaboration.SaveInput{
				Email:  email,
				Role:   model.StoryMapRoleEditor,
				Status: &status,
			}, func(v collaboration.ValidationInput) error {
				isNew = v.Current == nil
				if v.Current != nil && v.Current.IsApproved() {
					return errAlreadyMember
				}
				return nil
			})
			if errors.Is(err, errAlreadyMember) {
				continue
			}
			if err != nil {
				respondWithServiceError(w, r, "StoryMapMembership", "save", err)
				return
			}
			if isNew {
				invited = append(invited, m)
				logAudit(r, audit.CreateEvent(user, membershipResource(m), audit.Metadata{"story_map": sm.ID.String()}))
			}
		}
		if notifier != nil && len(invited) > 0 {
			if err := notifier.SendStoryMapInvites(ctx, user, sm, invited); err != nil {
				logging.Component("story_maps").Warn().Err(err).Str("story_map_id", sm.ID.String()).Msg("failed to send story map invites")
			}
		}
		if invited == nil {
			invited = []*model.Membership{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"memberships": invited})
	}
}

func handleDeleteStoryMapMembership(storyMaps store.StoryMapsStore, memberships store.MembershipsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		sm := loadStoryMap(w, r, storyMaps, "delete")
		if sm == nil {
			return
		}
		membershipID, err := pathID(r, "mid")
		if err != nil {
			notFound(w, "StoryMapMembership")
			return
		}
		m, err := memberships.GetMembership(ctx, *sm.MembershipListID, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "StoryMapMembership", "delete", err)
			return
		}
		if !permission.CanDeleteStoryMapMembership(user, sm, m) {
			notAllowed(w, "delete", "StoryMapMembership")
			return
		}
		if err := memberships.DeleteMembership(ctx, m); err != nil {
			internalError(w, r, err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, membershipResource(m), audit.Metadata{"story_map": sm.ID.String()}))
		respondWithJSON(w, http.StatusOK, m)
	}
}

// handleApproveStoryMapMembership accepts an invitation. The token must
// name a membership held by the caller, by user or by invited address.
func handleApproveStoryMapMembership(storyMaps store.StoryMapsStore, memberships store.MembershipsStore, tokens *auth.JWTService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := identity.User(ctx)
		var in approveInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "StoryMapMembership", err)
			return
		}
		claims, err := tokens.VerifyStoryMapMembershipApproveToken(in.Token)
		if err != nil {
			badRequest(w, "invalid_token", err.Error())
			return
		}
		rawID, _ := claims[auth.ClaimMembershipID].(string)
		membershipID, err := uuid.Parse(rawID)
		if err != nil {
			badRequest(w, "invalid_token", "token has no membership")
			return
		}
		sm, err := storyMaps.FindStoryMapByMembership(ctx, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "StoryMapMembership", "approve", err)
			return
		}
		m, err := memberships.GetMembership(ctx, *sm.MembershipListID, membershipID)
		if err != nil {
			respondWithServiceError(w, r, "StoryMapMembership", "approve", err)
			return
		}
		if !m.BelongsTo(user) {
			notAllowed(w, "approve", "StoryMapMembership")
			return
		}
		if m.UserID == nil {
			m.UserID, m.User, m.PendingEmail = &user.ID, user, nil
			m.MembershipStatus = model.MembershipApproved
			if err := memberships.SaveMembership(ctx, m); err != nil {
				internalError(w, r, err)
				return
			}
		} else if m, err = collaboration.ApproveMembership(ctx, memberships, sm.MembershipList, membershipID); err != nil {
			respondWithServiceError(w, r, "StoryMapMembership", "approve", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, membershipResource(m), audit.Metadata{"story_map": sm.ID.String(), "approved": true}))
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"membership": m,
			"storyMap":   sm,
		})
	}
}
