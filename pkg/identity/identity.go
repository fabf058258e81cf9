package identity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

var ErrMissingSubject = errors.New("token has no valid subject")

// Identity is the authenticated caller of a request.
type Identity struct {
	// Token claims
	UserID       uuid.UUID
	Email        string
	IsFirstLogin bool
	IssuedAt     time.Time
	ExpiresAt    time.Time

	// User is loaded by the auth middleware.
	User *model.User

	// Request context
	RemoteIP  net.IP
	UserAgent string

	// Token is the raw bearer token.
	Token string
}

// FromClaims builds an Identity from verified access token claims.
func FromClaims(claims jwt.MapClaims, raw string) (*Identity, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, ErrMissingSubject
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrMissingSubject
	}

	id := &Identity{UserID: userID, Token: raw}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if first, ok := claims["isFirstLogin"].(bool); ok {
		id.IsFirstLogin = first
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// WithUser attaches the loaded user.
func (i *Identity) WithUser(u *model.User) *Identity {
	i.User = u
	return i
}

// WithRequest records the caller's address and user agent.
func (i *Identity) WithRequest(r *http.Request) *Identity {
	i.RemoteIP = RemoteIP(r)
	i.UserAgent = r.UserAgent()
	return i
}

// RemoteIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func RemoteIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok && id != nil
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

// User returns the authenticated user in ctx, or nil for anonymous requests.
func User(ctx context.Context) *model.User {
	if id, ok := Get(ctx); ok {
		return id.User
	}
	return nil
}
