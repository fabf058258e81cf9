package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
)

// UserLookup loads the user named by a token subject.
type UserLookup interface {
	FindUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// JWTAuthenticator is middleware that validates Terraso access tokens
type JWTAuthenticator struct {
	Tokens *auth.JWTService
	Users  UserLookup
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(tokens *auth.JWTService, users UserLookup) *JWTAuthenticator {
	return &JWTAuthenticator{Tokens: tokens, Users: users}
}

var (
	errMissingHeader = errors.New("Authorization missing")
	errMalformed     = errors.New("Malformed authorization header")
	errInactive      = errors.New("User is inactive")
)

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="terraso"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": "unauthorized", "message": err.Error()},
	})
}

// authenticate resolves the identity behind header.
func (j *JWTAuthenticator) authenticate(r *http.Request, header string) (*identity.Identity, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return nil, errMalformed
	}
	claims, err := j.Tokens.VerifyAccessToken(raw)
	if err != nil {
		return nil, err
	}
	id, err := identity.FromClaims(claims, raw)
	if err != nil {
		return nil, err
	}
	user, err := j.Users.FindUser(r.Context(), id.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errInactive
	}
	return id.WithUser(user).WithRequest(r), nil
}

// Middleware rejects requests without a valid access token.
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, errMissingHeader)
			return
		}
		id, err := j.authenticate(r, header)
		if err != nil {
			logging.Component("authn").Debug().Err(err).Str("path", r.URL.Path).Msg("rejected access token")
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

// Optional lets anonymous requests through. A header that is present must
// still be valid.
func (j *JWTAuthenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := j.authenticate(r, header)
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}
