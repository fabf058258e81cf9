package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotAllowed = errors.New("not allowed")
	ErrBadFormat  = errors.New("unsupported export format")
)

// TokenStore persists export tokens. Find methods return nil, nil when
// nothing matches.
type TokenStore interface {
	FindExportToken(ctx context.Context, token string) (*model.ExportToken, error)
	FindExportTokenFor(ctx context.Context, resourceType model.ExportResourceType, resourceID string) (*model.ExportToken, error)
	CreateExportToken(ctx context.Context, t *model.ExportToken) error
	DeleteExportToken(ctx context.Context, token string) error
	ListExportTokens(ctx context.Context, userID uuid.UUID) ([]model.ExportToken, error)
}

// TokenService hands out the long lived tokens that address public exports.
type TokenService struct {
	tokens  TokenStore
	data    DataSource
	checker *permission.Checker
}

func NewTokenService(tokens TokenStore, data DataSource, checker *permission.Checker) *TokenService {
	if checker == nil {
		checker = permission.NewChecker(nil)
	}
	return &TokenService{tokens: tokens, data: data, checker: checker}
}

// target loads the resource a token would address. A missing resource is
// ErrNotFound.
func (s *TokenService) target(ctx context.Context, t model.ExportResourceType, resourceID string) (permission.ExportTarget, error) {
	id, err := uuid.Parse(resourceID)
	if err != nil {
		return permission.ExportTarget{}, fmt.Errorf("%s %q: %w", t, resourceID, ErrNotFound)
	}
	switch t {
	case model.ExportUser:
		u, err := s.data.FindUser(ctx, id)
		if err != nil {
			return permission.ExportTarget{}, err
		}
		if u == nil {
			return permission.ExportTarget{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return permission.ExportTarget{UserID: u.ID.String()}, nil
	case model.ExportProject:
		p, err := s.data.FindProject(ctx, id)
		if err != nil {
			return permission.ExportTarget{}, err
		}
		if p == nil {
			return permission.ExportTarget{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return permission.ExportTarget{Project: p}, nil
	case model.ExportSite:
		site, err := s.data.FindSite(ctx, id)
		if err != nil {
			return permission.ExportTarget{}, err
		}
		if site == nil {
			return permission.ExportTarget{}, fmt.Errorf("site %s: %w", id, ErrNotFound)
		}
		return permission.ExportTarget{Site: site, Project: site.Project}, nil
	}
	return permission.ExportTarget{}, fmt.Errorf("resource type %q: %w", t, ErrNotFound)
}

func (s *TokenService) authorize(ctx context.Context, user *model.User, t model.ExportResourceType, resourceID string) error {
	target, err := s.target(ctx, t, resourceID)
	if err != nil {
		return err
	}
	if !s.checker.CanManageExportToken(user, t, target) {
		return fmt.Errorf("export token for %s %s: %w", t, resourceID, ErrNotAllowed)
	}
	return nil
}

// CreateToken returns the resource's token, creating one on first use.
func (s *TokenService) CreateToken(ctx context.Context, user *model.User, t model.ExportResourceType, resourceID string) (*model.ExportToken, error) {
	if err := s.authorize(ctx, user, t, resourceID); err != nil {
		return nil, err
	}
	existing, err := s.tokens.FindExportTokenFor(ctx, t, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up export token: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	token := &model.ExportToken{
		Token:        uuid.NewString(),
		ResourceType: t,
		ResourceID:   resourceID,
		UserID:       &user.ID,
	}
	if err := s.tokens.CreateExportToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create export token: %w", err)
	}
	return token, nil
}

// DeleteToken revokes a token. The caller must be allowed to manage tokens
// for the resource; tokens of deleted resources can be removed by their
// creator.
func (s *TokenService) DeleteToken(ctx context.Context, user *model.User, token string) error {
	existing, err := s.tokens.FindExportToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to look up export token: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("export token: %w", ErrNotFound)
	}
	err = s.authorize(ctx, user, existing.ResourceType, existing.ResourceID)
	switch {
	case errors.Is(err, ErrNotFound):
		if user == nil || existing.UserID == nil || *existing.UserID != user.ID {
			return fmt.Errorf("export token: %w", ErrNotAllowed)
		}
	case err != nil:
		return err
	}
	return s.tokens.DeleteExportToken(ctx, token)
}

// ListTokens returns the tokens the user created.
func (s *TokenService) ListTokens(ctx context.Context, user *model.User) ([]model.ExportToken, error) {
	if user == nil {
		return nil, ErrNotAllowed
	}
	return s.tokens.ListExportTokens(ctx, user.ID)
}

// Resolve finds the token addressed by a public export URL.
func (s *TokenService) Resolve(ctx context.Context, token string) (*model.ExportToken, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, fmt.Errorf("export token: %w", ErrNotFound)
	}
	t, err := s.tokens.FindExportToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("export token: %w", ErrNotFound)
	}
	return t, nil
}
