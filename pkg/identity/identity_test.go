package identity

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

func TestFromClaims(t *testing.T) {
	userID := uuid.New()
	iat := time.Now().Add(-time.Minute).Truncate(time.Second)
	exp := iat.Add(6 * time.Minute)

	id, err := FromClaims(jwt.MapClaims{
		"sub":   userID.String(),
		"email": "ana@example.org",
		"iat":   float64(iat.Unix()),
		"exp":   float64(exp.Unix()),
	}, "raw-token")
	require.NoError(t, err)

	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, "ana@example.org", id.Email)
	assert.True(t, iat.Equal(id.IssuedAt))
	assert.True(t, exp.Equal(id.ExpiresAt))
	assert.Equal(t, "raw-token", id.Token)
}

func TestFromClaimsRejectsBadSubject(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing", jwt.MapClaims{}},
		{"not a uuid", jwt.MapClaims{"sub": "alice"}},
		{"wrong type", jwt.MapClaims{"sub": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromClaims(tt.claims, "")
			assert.ErrorIs(t, err, ErrMissingSubject)
		})
	}
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:4242"
	assert.Equal(t, "10.0.0.5", RemoteIP(r).String())

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", RemoteIP(r).String())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := Get(context.Background())
	assert.False(t, ok)
	assert.Nil(t, User(context.Background()))

	u := &model.User{Email: "ana@example.org"}
	ctx := Set(context.Background(), (&Identity{}).WithUser(u))

	got, ok := Get(ctx)
	require.True(t, ok)
	assert.Same(t, u, got.User)
	assert.Same(t, u, User(ctx))
}
