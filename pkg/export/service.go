package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/soil"
)

// loadConcurrency bounds the per-site queries run at once.
const loadConcurrency = 8

// SiteFilter selects sites. Zero fields are ignored.
type SiteFilter struct {
	ProjectID *uuid.UUID
	OwnerID   *uuid.UUID
	// MemberID selects sites of projects the user is a member of.
	MemberID *uuid.UUID
}

// DataSource reads what an export contains. Find methods return nil, nil
// when nothing matches.
type DataSource interface {
	FindUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindProject preloads the membership list.
	FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// FindSite preloads the project with its memberships.
	FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error)
	ListSites(ctx context.Context, filter SiteFilter) ([]model.Site, error)
	FindSoilData(ctx context.Context, siteID uuid.UUID) (*model.SoilData, error)
	FindSoilMetadata(ctx context.Context, siteID uuid.UUID) (*model.SoilMetadata, error)
	// ListSiteNotes preloads note authors, oldest first.
	ListSiteNotes(ctx context.Context, siteID uuid.UUID) ([]model.SiteNote, error)
}

// Scope is the kind of resource named in an export URL.
type Scope string

const (
	ScopeProject   Scope = "project"
	ScopeSite      Scope = "site"
	ScopeUserOwned Scope = "user_owned"
	ScopeUserAll   Scope = "user_all"
)

func ParseScope(s string) (Scope, bool) {
	switch sc := Scope(strings.ToLower(s)); sc {
	case ScopeProject, ScopeSite, ScopeUserOwned, ScopeUserAll:
		return sc, true
	}
	return "", false
}

// ResourceType is the token type that may address the scope.
func (sc Scope) ResourceType() model.ExportResourceType {
	switch sc {
	case ScopeProject:
		return model.ExportProject
	case ScopeSite:
		return model.ExportSite
	default:
		return model.ExportUser
	}
}

type ProjectInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type NoteExport struct {
	Content     string    `json:"content"`
	AuthorEmail string    `json:"authorEmail"`
	CreatedAt   time.Time `json:"createdAt"`
}

type DepthExport struct {
	model.DepthDependentData
	ColorMunsell string `json:"colorMunsell,omitempty"`
}

type SoilExport struct {
	model.SoilData
	DepthIntervals     []model.SoilDataDepthInterval `json:"depthIntervals"`
	DepthDependentData []DepthExport                 `json:"depthDependentData"`
}

type MetadataExport struct {
	SelectedSoilID *string `json:"selectedSoilId"`
}

// SiteExport is one site with everything recorded about it.
type SiteExport struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Elevation    *float64       `json:"elevation"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Privacy      string         `json:"privacy"`
	Archived     bool           `json:"archived"`
	Project      *ProjectInfo   `json:"project"`
	SoilData     SoilExport     `json:"soilData"`
	SoilMetadata MetadataExport `json:"soilMetadata"`
	Notes        []NoteExport   `json:"notes"`
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

type Service struct {
	data    DataSource
	tokens  *TokenService
	checker *permission.Checker
	log     *zerolog.Logger
}

func NewService(data DataSource, tokens *TokenService, checker *permission.Checker) *Service {
	if checker == nil {
		checker = permission.NewChecker(nil)
	}
	return &Service{data: data, tokens: tokens, checker: checker, log: logging.Component("export")}
}

// ExportByToken renders the resource a public token addresses. The scope in
// the URL must agree with the token's resource type.
func (s *Service) ExportByToken(ctx context.Context, scope Scope, token, name, format string) (*File, error) {
	t, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if t.ResourceType != scope.ResourceType() {
		return nil, fmt.Errorf("export token: %w", ErrNotFound)
	}
	id, err := uuid.Parse(t.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("export token resource: %w", ErrNotFound)
	}
	sites, err := s.Collect(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return Render(sites, name, format)
}

// ExportByID renders a resource for a signed in user allowed to see it.
func (s *Service) ExportByID(ctx context.Context, user *model.User, scope Scope, id uuid.UUID, name, format string) (*File, error) {
	if err := s.authorizeView(ctx, user, scope, id); err != nil {
		return nil, err
	}
	sites, err := s.Collect(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return Render(sites, name, format)
}

func (s *Service) authorizeView(ctx context.Context, user *model.User, scope Scope, id uuid.UUID) error {
	if user == nil {
		return ErrNotAllowed
	}
	switch scope {
	case ScopeUserOwned, ScopeUserAll:
		if user.ID != id {
			return fmt.Errorf("user %s: %w", id, ErrNotAllowed)
		}
	case ScopeProject:
		p, err := s.data.FindProject(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		if !s.checker.CanManageExportToken(user, model.ExportProject, permission.ExportTarget{Project: p}) {
			return fmt.Errorf("project %s: %w", id, ErrNotAllowed)
		}
	case ScopeSite:
		site, err := s.data.FindSite(ctx, id)
		if err != nil {
			return err
		}
		if site == nil {
			return fmt.Errorf("site %s: %w", id, ErrNotFound)
		}
		if !s.checker.CanViewSite(user, site) {
			return fmt.Errorf("site %s: %w", id, ErrNotAllowed)
		}
	}
	return nil
}

// sitesFor lists the sites in scope, without their soil data.
func (s *Service) sitesFor(ctx context.Context, scope Scope, id uuid.UUID) ([]model.Site, error) {
	switch scope {
	case ScopeSite:
		site, err := s.data.FindSite(ctx, id)
		if err != nil {
			return nil, err
		}
		if site == nil {
			return nil, fmt.Errorf("site %s: %w", id, ErrNotFound)
		}
		return []model.Site{*site}, nil
	case ScopeProject:
		p, err := s.data.FindProject(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return s.data.ListSites(ctx, SiteFilter{ProjectID: &id})
	case ScopeUserOwned, ScopeUserAll:
		u, err := s.data.FindUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		owned, err := s.data.ListSites(ctx, SiteFilter{OwnerID: &id})
		if err != nil {
			return nil, err
		}
		if scope == ScopeUserOwned {
			return owned, nil
		}
		shared, err := s.data.ListSites(ctx, SiteFilter{MemberID: &id})
		if err != nil {
			return nil, err
		}
		return mergeSites(owned, shared), nil
	}
	return nil, fmt.Errorf("scope %q: %w", scope, ErrNotFound)
}

func mergeSites(lists ...[]model.Site) []model.Site {
	seen := map[uuid.UUID]bool{}
	var out []model.Site
	for _, list := range lists {
		for _, site := range list {
			if seen[site.ID] {
				continue
			}
			seen[site.ID] = true
			out = append(out, site)
		}
	}
	return out
}

// Collect loads every site in scope with its soil data, metadata and notes.
// Sites are ordered by name.
func (s *Service) Collect(ctx context.Context, scope Scope, id uuid.UUID) ([]SiteExport, error) {
	sites, err := s.sitesFor(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sites, func(i, j int) bool { return strings.ToLower(sites[i].Name) < strings.ToLower(sites[j].Name) })

	out := make([]SiteExport, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i := range sites {
		i := i
		g.Go(func() error {
			e, err := s.loadSite(gctx, &sites[i])
			if err != nil {
				return fmt.Errorf("site %s: %w", sites[i].ID, err)
			}
			out[i] = *e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Debug().Str("scope", string(scope)).Str("id", id.String()).Int("sites", len(out)).Msg("collected export")
	return out, nil
}

func (s *Service) loadSite(ctx context.Context, site *model.Site) (*SiteExport, error) {
	e := &SiteExport{
		ID:        site.ID,
		Name:      site.Name,
		Latitude:  site.Latitude,
		Longitude: site.Longitude,
		Elevation: site.Elevation,
		UpdatedAt: site.UpdatedAt,
		Privacy:   site.Privacy,
		Archived:  site.Archived,
		Notes:     []NoteExport{},
	}
	if site.Project != nil {
		e.Project = &ProjectInfo{ID: site.Project.ID, Name: site.Project.Name, Description: site.Project.Description}
	}

	d, err := s.data.FindSoilData(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	e.SoilData = soilExport(d)

	meta, err := s.data.FindSoilMetadata(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		e.SoilMetadata.SelectedSoilID = meta.SelectedSoilID
	}

	notes, err := s.data.ListSiteNotes(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		ne := NoteExport{Content: n.Content, CreatedAt: n.CreatedAt}
		if n.Author != nil {
			ne.AuthorEmail = n.Author.Email
		}
		e.Notes = append(e.Notes, ne)
	}
	return e, nil
}

// soilExport fills preset intervals for sites that never customized them
// and adds Munsell strings to depth data.
func soilExport(d *model.SoilData) SoilExport {
	if d == nil {
		d = &model.SoilData{DepthIntervalPreset: model.PresetLandPKS}
	}
	out := SoilExport{
		SoilData:           *d,
		DepthIntervals:     d.DepthIntervals,
		DepthDependentData: make([]DepthExport, 0, len(d.DepthDependentData)),
	}
	out.SoilData.DepthIntervals = nil
	out.SoilData.DepthDependentData = nil
	if len(out.DepthIntervals) == 0 {
		for _, iv := range soil.PresetIntervals(d.DepthIntervalPreset) {
			out.DepthIntervals = append(out.DepthIntervals, model.SoilDataDepthInterval{
				Label:         fmt.Sprintf("%d-%d cm", iv.Start, iv.End),
				DepthInterval: iv,
			})
		}
	}
	if out.DepthIntervals == nil {
		out.DepthIntervals = []model.SoilDataDepthInterval{}
	}
	sort.SliceStable(out.DepthIntervals, func(i, j int) bool { return out.DepthIntervals[i].Start < out.DepthIntervals[j].Start })
	for _, dd := range d.DepthDependentData {
		out.DepthDependentData = append(out.DepthDependentData, DepthExport{
			DepthDependentData: dd,
			ColorMunsell:       MunsellColor(dd.ColorHueSubstep, dd.ColorHue, dd.ColorValue, dd.ColorChroma),
		})
	}
	return out
}
