package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/model"
)

var (
	ErrNotAccessToken      = errors.New("Token is not an access token")
	ErrNotRefreshToken     = errors.New("Token is not a refresh token")
	ErrNotUnsubscribeToken = errors.New("Token is not an unsubscribe token")
	ErrNotApproveToken     = errors.New("Token is not a story map membership approve token")
)

// Claim names carried by Terraso tokens.
const (
	ClaimAccess       = "access"
	ClaimRefresh      = "refresh"
	ClaimUnsubscribe  = "unsubscribe"
	ClaimApprove      = "approveStoryMapMembership"
	ClaimMembershipID = "membershipId"
	ClaimPendingEmail = "pendingEmail"
	ClaimFirstLogin   = "isFirstLogin"
)

// JWTService signs and verifies the HMAC tokens issued by this server.
type JWTService struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string

	now func() time.Time
}

func NewJWTService(cfg *config.TerrasoConfig) *JWTService {
	return &JWTService{
		Secret:     []byte(cfg.JWTSecret),
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
		Issuer:     cfg.JWTIssuer,
		now:        time.Now,
	}
}

func (s *JWTService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *JWTService) baseClaims(user *model.User) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss":   s.Issuer,
		"iat":   jwt.NewNumericDate(s.clock()),
		"jti":   strings.ReplaceAll(uuid.NewString(), "-", ""),
		"sub":   nil,
		"email": nil,
	}
	if user != nil {
		claims["sub"] = user.ID.String()
		claims["email"] = user.Email
	}
	return claims
}

// CreateToken signs the base claims merged over extra. A zero ttl produces a
// token without expiry.
func (s *JWTService) CreateToken(user *model.User, ttl time.Duration, extra jwt.MapClaims) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	for k, v := range s.baseClaims(user) {
		claims[k] = v
	}
	if ttl > 0 {
		claims["exp"] = jwt.NewNumericDate(s.clock().Add(ttl))
	}

	method := jwt.GetSigningMethod(s.Algorithm)
	if method == nil {
		return "", fmt.Errorf("unsupported signing algorithm %q", s.Algorithm)
	}
	return jwt.NewWithClaims(method, claims).SignedString(s.Secret)
}

func (s *JWTService) CreateAccessToken(user *model.User, extra jwt.MapClaims) (string, error) {
	claims := jwt.MapClaims{ClaimAccess: true}
	for k, v := range extra {
		claims[k] = v
	}
	return s.CreateToken(user, s.AccessTTL, claims)
}

func (s *JWTService) CreateRefreshToken(user *model.User) (string, error) {
	return s.CreateToken(user, s.RefreshTTL, jwt.MapClaims{ClaimRefresh: true})
}

// CreateUnsubscribeToken never expires; it is embedded in email footers.
func (s *JWTService) CreateUnsubscribeToken(user *model.User) (string, error) {
	return s.CreateToken(user, 0, jwt.MapClaims{ClaimUnsubscribe: true})
}

// CreateStoryMapMembershipApproveToken identifies an invitation. Pending
// invitations carry the invited address instead of a user.
func (s *JWTService) CreateStoryMapMembershipApproveToken(m *model.Membership) (string, error) {
	extra := jwt.MapClaims{
		ClaimMembershipID: m.ID.String(),
		ClaimPendingEmail: nil,
		ClaimApprove:      true,
	}
	if m.User == nil && m.PendingEmail != nil {
		extra[ClaimPendingEmail] = *m.PendingEmail
	}
	return s.CreateToken(m.User, 0, extra)
}

// LoginPair issues the access and refresh tokens returned on sign in.
func (s *JWTService) LoginPair(user *model.User, firstLogin bool) (access, refresh string, err error) {
	access, err = s.CreateAccessToken(user, jwt.MapClaims{ClaimFirstLogin: firstLogin})
	if err != nil {
		return "", "", err
	}
	refresh, err = s.CreateRefreshToken(user)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// VerifyToken checks the signature and, when present, the expiry.
func (s *JWTService) VerifyToken(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{s.Algorithm}), jwt.WithTimeFunc(s.clock))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *JWTService) verifyKind(token, kind string, needsExp bool, kindErr error) (jwt.MapClaims, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	if flag, _ := claims[kind].(bool); !flag {
		return nil, kindErr
	}
	if needsExp {
		if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
			return nil, kindErr
		}
	}
	return claims, nil
}

func (s *JWTService) VerifyAccessToken(token string) (jwt.MapClaims, error) {
	return s.verifyKind(token, ClaimAccess, true, ErrNotAccessToken)
}

func (s *JWTService) VerifyRefreshToken(token string) (jwt.MapClaims, error) {
	return s.verifyKind(token, ClaimRefresh, true, ErrNotRefreshToken)
}

func (s *JWTService) VerifyUnsubscribeToken(token string) (jwt.MapClaims, error) {
	return s.verifyKind(token, ClaimUnsubscribe, false, ErrNotUnsubscribeToken)
}

func (s *JWTService) VerifyStoryMapMembershipApproveToken(token string) (jwt.MapClaims, error) {
	return s.verifyKind(token, ClaimApprove, false, ErrNotApproveToken)
}
