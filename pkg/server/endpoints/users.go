package endpoints

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

const maxProfileImageSize = 10 << 20

var preferenceKeys = map[string]bool{
	model.PreferenceGroupNotifications:    true,
	model.PreferenceStoryMapNotifications: true,
	model.PreferenceNotifications:         true,
	model.PreferenceLanguage:              true,
}

type userUpdate struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=150"`
	LastName  *string `json:"lastName" validate:"omitempty,max=150"`
}

type preferenceUpdate struct {
	Value string `json:"value" validate:"max=128"`
}

// RegisterUsersEndpoints registers the current user's profile endpoints.
func RegisterUsersEndpoints(s *server.Server) {
	usersRouter := s.API().PathPrefix("/users").Subrouter()
	usersRouter.Use(s.JWTMiddleware.Middleware)

	usersRouter.HandleFunc("", handleListUsers(s.UsersStore)).Methods("GET")
	usersRouter.HandleFunc("/me", handleGetMe(s.UsersStore)).Methods("GET")
	usersRouter.HandleFunc("/me", handleUpdateMe(s.UsersStore)).Methods("PUT")
	usersRouter.HandleFunc("/me/preferences/{key}", handleSetPreference(s.UsersStore)).Methods("PUT")
	usersRouter.HandleFunc("/me/profile-image", handleUploadProfileImage(s.UsersStore, s.ProfileImages)).Methods("POST")
}

func handleListUsers(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := users.ListUsers(r.Context(), listOptions(r))
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}

func handleGetMe(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		user, err := users.FindUser(r.Context(), id.UserID)
		if err != nil {
			respondWithServiceError(w, r, "User", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, user)
	}
}

func handleUpdateMe(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in userUpdate
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "User", err)
			return
		}
		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = strings.TrimSpace(*in.LastName)
		}
		if err := users.Update(r.Context(), user); err != nil {
			respondWithServiceError(w, r, "User", "update", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(user.ID, "user", user.Email, user), nil))
		respondWithJSON(w, http.StatusOK, user)
	}
}

func handleSetPreference(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		key := mux.Vars(r)["key"]
		if !preferenceKeys[key] {
			badRequest(w, "invalid_preference", key)
			return
		}
		var in preferenceUpdate
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "UserPreference", err)
			return
		}
		if err := users.SetPreference(r.Context(), user.ID, key, in.Value); err != nil {
			respondWithServiceError(w, r, "UserPreference", "update", err)
			return
		}
		respondWithJSON(w, http.StatusOK, model.UserPreference{UserID: user.ID, Key: key, Value: in.Value})
	}
}

func handleUploadProfileImage(users store.UsersStore, images server.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, maxProfileImageSize+(1<<20))
		if err := r.ParseMultipartForm(maxProfileImageSize); err != nil {
			badRequest(w, "invalid_upload", err.Error())
			return
		}
		file, header, err := r.FormFile("data")
		if err != nil {
			badRequest(w, "invalid_upload", "missing file field 'data'")
			return
		}
		defer file.Close()
		if header.Size > maxProfileImageSize {
			badRequest(w, "file_too_large", header.Filename)
			return
		}

		url, err := images.UploadFile(r.Context(), user.ID.String(), file, header.Size, "", header.Header.Get("Content-Type"))
		if err != nil {
			internalError(w, r, err)
			return
		}
		if err := users.UpdateProfileImage(r.Context(), user.ID, url); err != nil {
			internalError(w, r, err)
			return
		}
		user.ProfileImage = url
		logAudit(r, audit.ChangeEvent(user, auditResource(user.ID, "user", user.Email, nil), audit.Metadata{"profileImage": url}))
		respondWithJSON(w, http.StatusOK, user)
	}
}
