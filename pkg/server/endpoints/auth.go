package endpoints

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

type tokenExchanger interface {
	HasProvider(name string) bool
	Validate(ctx context.Context, provider, token string) (*auth.ExchangeClaims, error)
}

type accountPersister interface {
	PersistUser(ctx context.Context, email, firstName, lastName, pictureURL string) (*model.User, bool, error)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type exchangeRequest struct {
	Provider string `json:"provider" validate:"required"`
	JWT      string `json:"jwt" validate:"required"`
}

type tokenPair struct {
	AccessToken  string `json:"atoken"`
	RefreshToken string `json:"rtoken"`
	Created      bool   `json:"created,omitempty"`
}

var notificationPreferences = []string{
	model.PreferenceGroupNotifications,
	model.PreferenceStoryMapNotifications,
	model.PreferenceNotifications,
}

// RegisterAuthEndpoints registers token issuance and session endpoints.
func RegisterAuthEndpoints(s *server.Server) {
	public := s.API().PathPrefix("/auth").Subrouter()

	// POST /auth/tokens - Refresh an access token
	public.HandleFunc("/tokens", handleRefreshTokens(s.JWT, s.UsersStore)).Methods("POST")
	// POST /auth/token-exchange - Trade a provider id token for Terraso tokens
	public.HandleFunc("/token-exchange", handleTokenExchange(s.Exchanger, s.Accounts, s.UsersStore, s.JWT)).Methods("POST")
	// GET /auth/unsubscribe?token=... - Turn off email notifications
	public.HandleFunc("/unsubscribe", handleUnsubscribe(s.JWT, s.UsersStore)).Methods("GET")

	private := s.API().PathPrefix("/auth").Subrouter()
	private.Use(s.JWTMiddleware.Middleware)
	private.HandleFunc("/user", handleCurrentUser()).Methods("GET")
	private.HandleFunc("/logout", handleLogout()).Methods("POST")
}

func handleRefreshTokens(tokens *auth.JWTService, users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			invalidData(w, "token", err)
			return
		}

		event := audit.AuthenticateEvent{ClientIP: clientIP(r), Method: "refresh"}
		fail := func(msg string) {
			event.ErrorMessage = msg
			audit.Log(event)
			badRequest(w, "invalid_token", msg)
		}

		claims, err := tokens.VerifyRefreshToken(req.RefreshToken)
		if err != nil {
			fail(err.Error())
			return
		}
		sub, _ := claims.GetSubject()
		userID, err := uuid.Parse(sub)
		if err != nil {
			fail("Token has no subject")
			return
		}
		event.UserID = &userID

		user, err := users.FindUser(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !user.IsActive) {
			fail("User not found")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}

		access, refresh, err := tokens.LoginPair(user, false)
		if err != nil {
			internalError(w, r, err)
			return
		}
		event.Email = user.Email
		event.Success = true
		audit.Log(event)
		respondWithJSON(w, http.StatusOK, map[string]string{
			"access_token":  access,
			"refresh_token": refresh,
		})
	}
}

func handleTokenExchange(exchanger tokenExchanger, accounts accountPersister, users store.UsersStore, tokens *auth.JWTService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exchangeRequest
		if err := decodeJSON(r, &req); err != nil {
			invalidData(w, "token", err)
			return
		}
		if !exchanger.HasProvider(req.Provider) {
			respondWithError(w, http.StatusBadRequest, apiError{Code: "bad_provider", Message: req.Provider})
			return
		}

		event := audit.AuthenticateEvent{ClientIP: clientIP(r), Method: "exchange:" + req.Provider}
		claims, err := exchanger.Validate(r.Context(), req.Provider, req.JWT)
		if err != nil {
			event.ErrorMessage = err.Error()
			audit.Log(event)
			var exErr *auth.ExchangeError
			if errors.As(err, &exErr) {
				respondWithError(w, exErr.StatusCode(), apiError{Code: exErr.Type, Message: exErr.Message})
				return
			}
			internalError(w, r, err)
			return
		}

		user, created, err := accounts.PersistUser(r.Context(), claims.Email, claims.GivenName, claims.FamilyName, claims.Picture)
		if errors.Is(err, auth.ErrEmptyEmail) {
			event.ErrorMessage = err.Error()
			audit.Log(event)
			badRequest(w, "token_error", err.Error())
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		if created {
			claimed, err := users.ClaimPendingMemberships(r.Context(), user)
			if err != nil {
				logging.Component("auth").Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to claim pending memberships")
			} else if claimed > 0 {
				logging.Component("auth").Info().Int64("count", claimed).Str("user_id", user.ID.String()).Msg("claimed pending memberships")
			}
		}

		access, refresh, err := tokens.LoginPair(user, created)
		if err != nil {
			internalError(w, r, err)
			return
		}
		event.UserID = &user.ID
		event.Email = user.Email
		event.Success = true
		audit.Log(event)
		respondWithJSON(w, http.StatusOK, tokenPair{AccessToken: access, RefreshToken: refresh, Created: created})
	}
}

func handleUnsubscribe(tokens *auth.JWTService, users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		claims, err := tokens.VerifyUnsubscribeToken(token)
		if err != nil {
			notAllowed(w, "update", "UserPreference")
			return
		}
		sub, _ := claims.GetSubject()
		userID, err := uuid.Parse(sub)
		if err != nil {
			notAllowed(w, "update", "UserPreference")
			return
		}
		user, err := users.FindUser(r.Context(), userID)
		if err != nil {
			respondWithServiceError(w, r, "UserPreference", "update", err)
			return
		}
		for _, key := range notificationPreferences {
			if err := users.SetPreference(r.Context(), user.ID, key, "false"); err != nil {
				internalError(w, r, err)
				return
			}
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(user.ID, "user", user.Email, nil), audit.Metadata{"unsubscribed": true}))
		respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func handleCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"user":         id.User,
			"isFirstLogin": id.IsFirstLogin,
		})
	}
}

// handleLogout acknowledges the sign out; tokens are stateless and expire
// on their own.
func handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		audit.Log(audit.AuthenticateEvent{
			UserID:   &id.UserID,
			Email:    id.Email,
			ClientIP: clientIP(r),
			Method:   "logout",
			Success:  true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
