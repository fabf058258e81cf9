package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

type mockData struct {
	mock.Mock
}

func (m *mockData) FindUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockData) FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(id)
	p, _ := args.Get(0).(*model.Project)
	return p, args.Error(1)
}

func (m *mockData) FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*model.Site)
	return s, args.Error(1)
}

func (m *mockData) ListSites(ctx context.Context, filter SiteFilter) ([]model.Site, error) {
	args := m.Called(filter)
	return args.Get(0).([]model.Site), args.Error(1)
}

func (m *mockData) FindSoilData(ctx context.Context, siteID uuid.UUID) (*model.SoilData, error) {
	args := m.Called(siteID)
	d, _ := args.Get(0).(*model.SoilData)
	return d, args.Error(1)
}

func (m *mockData) FindSoilMetadata(ctx context.Context, siteID uuid.UUID) (*model.SoilMetadata, error) {
	args := m.Called(siteID)
	d, _ := args.Get(0).(*model.SoilMetadata)
	return d, args.Error(1)
}

func (m *mockData) ListSiteNotes(ctx context.Context, siteID uuid.UUID) ([]model.SiteNote, error) {
	args := m.Called(siteID)
	return args.Get(0).([]model.SiteNote), args.Error(1)
}

type memTokens struct {
	tokens map[string]model.ExportToken
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[string]model.ExportToken{}}
}

func (m *memTokens) FindExportToken(ctx context.Context, token string) (*model.ExportToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memTokens) FindExportTokenFor(ctx context.Context, rt model.ExportResourceType, id string) (*model.ExportToken, error) {
	for _, t := range m.tokens {
		if t.ResourceType == rt && t.ResourceID == id {
			out := t
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memTokens) CreateExportToken(ctx context.Context, t *model.ExportToken) error {
	m.tokens[t.Token] = *t
	return nil
}

func (m *memTokens) DeleteExportToken(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func (m *memTokens) ListExportTokens(ctx context.Context, userID uuid.UUID) ([]model.ExportToken, error) {
	var out []model.ExportToken
	for _, t := range m.tokens {
		if t.UserID != nil && *t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func newUser(email string) *model.User {
	u := &model.User{Email: email}
	u.ID = uuid.New()
	return u
}

func projectWith(name string, members ...*model.User) *model.Project {
	p := &model.Project{Name: name, MembershipList: &model.MembershipList{}}
	p.ID = uuid.New()
	for _, u := range members {
		id := u.ID
		p.MembershipList.Memberships = append(p.MembershipList.Memberships, model.Membership{
			UserID: &id, User: u, UserRole: string(model.ProjectRoleViewer), MembershipStatus: model.MembershipApproved,
		})
	}
	return p
}

func strPtr(s string) *string {
	return &s
}

func TestCreateTokenIsIdempotent(t *testing.T) {
	user := newUser("owner@example.com")
	data := &mockData{}
	data.On("FindUser", user.ID).Return(user, nil)
	tokens := newMemTokens()
	svc := NewTokenService(tokens, data, nil)

	first, err := svc.CreateToken(context.Background(), user, model.ExportUser, user.ID.String())
	require.NoError(t, err)
	second, err := svc.CreateToken(context.Background(), user, model.ExportUser, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
	assert.Len(t, tokens.tokens, 1)

	list, err := svc.ListTokens(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateTokenPermissions(t *testing.T) {
	member := newUser("member@example.com")
	outsider := newUser("outsider@example.com")
	project := projectWith("Field trial", member)
	site := &model.Site{Name: "Plot 1", ProjectID: &project.ID, Project: project}
	site.ID = uuid.New()
	owned := &model.Site{Name: "Backyard"}
	owned.ID = uuid.New()
	owned.AddOwner(outsider)

	data := &mockData{}
	data.On("FindUser", member.ID).Return(member, nil)
	data.On("FindProject", project.ID).Return(project, nil)
	data.On("FindSite", site.ID).Return(site, nil)
	data.On("FindSite", owned.ID).Return(owned, nil)
	missing := uuid.New()
	data.On("FindProject", missing).Return(nil, nil)
	svc := NewTokenService(newMemTokens(), data, nil)
	ctx := context.Background()

	_, err := svc.CreateToken(ctx, member, model.ExportProject, project.ID.String())
	assert.NoError(t, err)
	_, err = svc.CreateToken(ctx, outsider, model.ExportProject, project.ID.String())
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = svc.CreateToken(ctx, member, model.ExportSite, site.ID.String())
	assert.NoError(t, err)
	_, err = svc.CreateToken(ctx, member, model.ExportSite, owned.ID.String())
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = svc.CreateToken(ctx, outsider, model.ExportSite, owned.ID.String())
	assert.NoError(t, err)

	_, err = svc.CreateToken(ctx, outsider, model.ExportUser, member.ID.String())
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = svc.CreateToken(ctx, member, model.ExportProject, missing.String())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.CreateToken(ctx, member, model.ExportProject, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteToken(t *testing.T) {
	user := newUser("owner@example.com")
	other := newUser("other@example.com")
	data := &mockData{}
	data.On("FindUser", user.ID).Return(user, nil)
	tokens := newMemTokens()
	svc := NewTokenService(tokens, data, nil)
	ctx := context.Background()

	tok, err := svc.CreateToken(ctx, user, model.ExportUser, user.ID.String())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteToken(ctx, other, tok.Token), ErrNotAllowed)
	assert.ErrorIs(t, svc.DeleteToken(ctx, user, uuid.NewString()), ErrNotFound)
	require.NoError(t, svc.DeleteToken(ctx, user, tok.Token))
	assert.Empty(t, tokens.tokens)
}

func TestDeleteTokenOfDeletedResource(t *testing.T) {
	user := newUser("owner@example.com")
	gone := uuid.New()
	tokens := newMemTokens()
	tokens.tokens["t1"] = model.ExportToken{Token: "t1", ResourceType: model.ExportProject, ResourceID: gone.String(), UserID: &user.ID}
	data := &mockData{}
	data.On("FindProject", gone).Return(nil, nil)
	svc := NewTokenService(tokens, data, nil)

	require.NoError(t, svc.DeleteToken(context.Background(), user, "t1"))
	assert.Empty(t, tokens.tokens)
}

func TestMunsellColor(t *testing.T) {
	assert.Equal(t, "7.5YR 4/3", MunsellColor(strPtr("SUBSTEP_7_5"), strPtr("YR"), strPtr("VALUE_4"), strPtr("CHROMA_3")))
	assert.Equal(t, "R 8.5/2", MunsellColor(nil, strPtr("R"), strPtr("VALUE_8_5"), strPtr("CHROMA_2")))
	assert.Equal(t, "", MunsellColor(nil, strPtr("R"), nil, strPtr("CHROMA_2")))
}

func exportFixture(t *testing.T) (*Service, *model.User, *model.Project, string) {
	t.Helper()
	user := newUser("owner@example.com")
	project := projectWith("Field trial", user)
	affiliated := model.Site{Name: "b plot", Latitude: 10.5, Longitude: -20.25, ProjectID: &project.ID, Project: project}
	affiliated.ID = uuid.New()
	affiliated.UpdatedAt = time.Date(2025, 11, 11, 17, 42, 15, 0, time.FixedZone("x", 7*3600))
	owned := model.Site{Name: "A yard", Latitude: 1, Longitude: 2}
	owned.ID = uuid.New()
	owned.AddOwner(user)

	nrcs := &model.SoilData{DepthIntervalPreset: model.PresetNRCS, SurfaceCracksSelect: "DEEP_VERTICAL_CRACKS"}
	nrcs.DepthDependentData = []model.DepthDependentData{{
		DepthInterval:      model.DepthInterval{Start: 0, End: 5},
		Texture:            strPtr("SILT_LOAM"),
		RockFragmentVolume: strPtr("VOLUME_1_15"),
		ColorHue:           strPtr("YR"),
		ColorHueSubstep:    strPtr("SUBSTEP_10"),
		ColorValue:         strPtr("VALUE_3"),
		ColorChroma:        strPtr("CHROMA_2"),
	}}

	data := &mockData{}
	data.On("FindUser", user.ID).Return(user, nil)
	data.On("FindProject", project.ID).Return(project, nil)
	data.On("ListSites", SiteFilter{OwnerID: &user.ID}).Return([]model.Site{owned}, nil)
	data.On("ListSites", SiteFilter{MemberID: &user.ID}).Return([]model.Site{affiliated, owned}, nil)
	data.On("ListSites", SiteFilter{ProjectID: &project.ID}).Return([]model.Site{affiliated}, nil)
	data.On("FindSoilData", affiliated.ID).Return(nrcs, nil)
	data.On("FindSoilData", owned.ID).Return(&model.SoilData{DepthIntervalPreset: model.PresetNone}, nil)
	data.On("FindSoilMetadata", affiliated.ID).Return(&model.SoilMetadata{SelectedSoilID: strPtr("Yemassee")}, nil)
	data.On("FindSoilMetadata", owned.ID).Return(nil, nil)
	note := model.SiteNote{Content: "first line\nsecond", Author: user}
	note.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	data.On("ListSiteNotes", affiliated.ID).Return([]model.SiteNote{note}, nil)
	data.On("ListSiteNotes", owned.ID).Return([]model.SiteNote{}, nil)

	tokens := newMemTokens()
	tokenSvc := NewTokenService(tokens, data, nil)
	tok, err := tokenSvc.CreateToken(context.Background(), user, model.ExportProject, project.ID.String())
	require.NoError(t, err)
	return NewService(data, tokenSvc, nil), user, project, tok.Token
}

func TestCollectUserAll(t *testing.T) {
	svc, user, _, _ := exportFixture(t)
	sites, err := svc.Collect(context.Background(), ScopeUserAll, user.ID)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "A yard", sites[0].Name)
	assert.Equal(t, "b plot", sites[1].Name)
	assert.Len(t, sites[1].SoilData.DepthIntervals, 6)
	assert.Equal(t, "0-5 cm", sites[1].SoilData.DepthIntervals[0].Label)
	assert.Equal(t, "10YR 3/2", sites[1].SoilData.DepthDependentData[0].ColorMunsell)
	assert.Empty(t, sites[0].SoilData.DepthIntervals)

	owned, err := svc.Collect(context.Background(), ScopeUserOwned, user.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestExportByTokenCSV(t *testing.T) {
	svc, _, _, token := exportFixture(t)
	file, err := svc.ExportByToken(context.Background(), ScopeProject, token, "Field trial", "csv")
	require.NoError(t, err)
	assert.Equal(t, "Field trial.csv", file.Name)
	require.True(t, bytes.HasPrefix(file.Body, []byte("\ufeff")))

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(file.Body, []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	header, first := records[0], records[1]
	row := map[string]string{}
	for i, col := range header {
		row[col] = first[i]
	}
	assert.Equal(t, "Field trial", row["Project name"])
	assert.Equal(t, "2025-11-11 10:42:15", row["Last updated (UTC)"])
	assert.Equal(t, "Deep vertical cracks", row["Surface cracks"])
	assert.Equal(t, "first line⏎second | owner@example.com | 2025-01-02 03:04:05", row["Site notes"])
	assert.Equal(t, "Yemassee", row["User selected soil"])
	assert.Equal(t, "Silt Loam", row["Texture"])
	assert.Equal(t, "1–15%", row["Rock fragment volume"])
	assert.Equal(t, "10YR 3/2", row["Color"])
	assert.Equal(t, "", records[2][len(header)-1])
}

func TestExportByTokenJSON(t *testing.T) {
	svc, _, _, token := exportFixture(t)
	file, err := svc.ExportByToken(context.Background(), ScopeProject, token, "trial", "json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", file.ContentType)

	var doc struct {
		Sites []struct {
			Name     string `json:"name"`
			SoilData struct {
				DepthIntervalPreset string `json:"depthIntervalPreset"`
				DepthDependentData  []struct {
					Texture      string `json:"texture"`
					ColorMunsell string `json:"colorMunsell"`
					Start        int    `json:"start"`
				} `json:"depthDependentData"`
			} `json:"soilData"`
			Project struct {
				Name string `json:"name"`
			} `json:"project"`
		} `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(file.Body, &doc))
	require.Len(t, doc.Sites, 1)
	assert.Equal(t, "NRCS", doc.Sites[0].SoilData.DepthIntervalPreset)
	assert.Equal(t, "SILT_LOAM", doc.Sites[0].SoilData.DepthDependentData[0].Texture)
	assert.Equal(t, "Field trial", doc.Sites[0].Project.Name)
}

func TestExportByTokenRejectsMismatch(t *testing.T) {
	svc, _, _, token := exportFixture(t)
	_, err := svc.ExportByToken(context.Background(), ScopeSite, token, "x", "csv")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ExportByToken(context.Background(), ScopeProject, "garbage", "x", "csv")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ExportByToken(context.Background(), ScopeProject, token, "x", "xlsx")
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestExportByID(t *testing.T) {
	svc, user, project, _ := exportFixture(t)
	file, err := svc.ExportByID(context.Background(), user, ScopeUserOwned, user.ID, "mine", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	assert.Len(t, lines, 2)

	_, err = svc.ExportByID(context.Background(), newUser("x@example.com"), ScopeProject, project.ID, "p", "csv")
	assert.True(t, errors.Is(err, ErrNotAllowed))
	_, err = svc.ExportByID(context.Background(), newUser("x@example.com"), ScopeUserAll, user.ID, "p", "csv")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestTruncateLongCells(t *testing.T) {
	long := strings.Repeat("a", excelCellLimit+10)
	site := SiteExport{Name: long, SoilData: soilExport(nil)}
	rows := flattenSite(&site)
	require.NotEmpty(t, rows)
	assert.Len(t, rows[0][1], excelCellLimit-20+len(" [TRUNCATED]"))
	assert.True(t, strings.HasSuffix(rows[0][1], "[TRUNCATED]"))
}
