package endpoints

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

// MockUsersStore implements store.UsersStore for testing using testify/mock
type MockUsersStore struct {
	mock.Mock
}

func (m *MockUsersStore) FindUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) GetOrCreateByEmail(ctx context.Context, email string) (*model.User, bool, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.User), args.Bool(1), args.Error(2)
}

func (m *MockUsersStore) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsersStore) SetPreference(ctx context.Context, userID uuid.UUID, key, value string) error {
	return m.Called(ctx, userID, key, value).Error(0)
}

func (m *MockUsersStore) UpdateProfileImage(ctx context.Context, userID uuid.UUID, url string) error {
	return m.Called(ctx, userID, url).Error(0)
}

func (m *MockUsersStore) ListUsers(ctx context.Context, opts store.ListOptions) (store.Page[model.User], error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(store.Page[model.User]), args.Error(1)
}

func (m *MockUsersStore) ClaimPendingMemberships(ctx context.Context, user *model.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

// MockMembershipsStore implements store.MembershipsStore
type MockMembershipsStore struct {
	mock.Mock
}

func (m *MockMembershipsStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockMembershipsStore) FindMembership(ctx context.Context, listID uuid.UUID, userID *uuid.UUID, email string) (*model.Membership, error) {
	args := m.Called(ctx, listID, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockMembershipsStore) GetMembership(ctx context.Context, listID, membershipID uuid.UUID) (*model.Membership, error) {
	args := m.Called(ctx, listID, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockMembershipsStore) SaveMembership(ctx context.Context, ms *model.Membership) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *MockMembershipsStore) FindMembershipList(ctx context.Context, id uuid.UUID) (*model.MembershipList, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MembershipList), args.Error(1)
}

func (m *MockMembershipsStore) ListMemberships(ctx context.Context, listID uuid.UUID) ([]model.Membership, error) {
	args := m.Called(ctx, listID)
	return args.Get(0).([]model.Membership), args.Error(1)
}

func (m *MockMembershipsStore) DeleteMembership(ctx context.Context, ms *model.Membership) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *MockMembershipsStore) PendingByEmail(ctx context.Context, email string) ([]model.Membership, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]model.Membership), args.Error(1)
}

// MockGroupsStore implements store.GroupsStore
type MockGroupsStore struct {
	mock.Mock
}

func (m *MockGroupsStore) ListGroups(ctx context.Context, opts store.ListOptions) (store.Page[model.Group], error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(store.Page[model.Group]), args.Error(1)
}

func (m *MockGroupsStore) FindGroup(ctx context.Context, slugOrID string) (*model.Group, error) {
	args := m.Called(ctx, slugOrID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupsStore) CreateGroup(ctx context.Context, g *model.Group, creator *model.User) error {
	return m.Called(ctx, g, creator).Error(0)
}

func (m *MockGroupsStore) UpdateGroup(ctx context.Context, g *model.Group) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockGroupsStore) DeleteGroup(ctx context.Context, g *model.Group) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockGroupsStore) FindGroupAssociation(ctx context.Context, id uuid.UUID) (*model.GroupAssociation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GroupAssociation), args.Error(1)
}

func (m *MockGroupsStore) CreateGroupAssociation(ctx context.Context, a *model.GroupAssociation) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockGroupsStore) DeleteGroupAssociation(ctx context.Context, a *model.GroupAssociation) error {
	return m.Called(ctx, a).Error(0)
}

// MockProjectsStore implements store.ProjectsStore
type MockProjectsStore struct {
	mock.Mock
}

func (m *MockProjectsStore) ListProjects(ctx context.Context, userID uuid.UUID, opts store.ListOptions) (store.Page[model.Project], error) {
	args := m.Called(ctx, userID, opts)
	return args.Get(0).(store.Page[model.Project]), args.Error(1)
}

func (m *MockProjectsStore) FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectsStore) CreateProject(ctx context.Context, p *model.Project, creator *model.User) error {
	return m.Called(ctx, p, creator).Error(0)
}

func (m *MockProjectsStore) UpdateProject(ctx context.Context, p *model.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProjectsStore) ArchiveProject(ctx context.Context, p *model.Project, archived bool) error {
	return m.Called(ctx, p, archived).Error(0)
}

func (m *MockProjectsStore) DeleteProject(ctx context.Context, p *model.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProjectsStore) MarkSeen(ctx context.Context, projectID, userID uuid.UUID) error {
	return m.Called(ctx, projectID, userID).Error(0)
}

func (m *MockProjectsStore) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.ProjectRole, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Get(0).(model.ProjectRole), args.Error(1)
}

// MockSitesStore implements store.SitesStore
type MockSitesStore struct {
	mock.Mock
}

func (m *MockSitesStore) ListSites(ctx context.Context, f store.SiteFilter) ([]model.Site, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.Site), args.Error(1)
}

func (m *MockSitesStore) FindSite(ctx context.Context, id uuid.UUID) (*model.Site, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *MockSitesStore) CreateSite(ctx context.Context, s *model.Site) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSitesStore) UpdateSite(ctx context.Context, s *model.Site) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSitesStore) DeleteSite(ctx context.Context, s *model.Site) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSitesStore) TransferSites(ctx context.Context, siteIDs []uuid.UUID, projectID uuid.UUID) error {
	return m.Called(ctx, siteIDs, projectID).Error(0)
}

// MockStoryMapsStore implements store.StoryMapsStore
type MockStoryMapsStore struct {
	mock.Mock
}

func (m *MockStoryMapsStore) ListStoryMaps(ctx context.Context, userID *uuid.UUID, opts store.ListOptions) (store.Page[model.StoryMap], error) {
	args := m.Called(ctx, userID, opts)
	return args.Get(0).(store.Page[model.StoryMap]), args.Error(1)
}

func (m *MockStoryMapsStore) FindStoryMap(ctx context.Context, id uuid.UUID) (*model.StoryMap, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoryMap), args.Error(1)
}

func (m *MockStoryMapsStore) CreateStoryMap(ctx context.Context, s *model.StoryMap) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStoryMapsStore) UpdateStoryMap(ctx context.Context, s *model.StoryMap) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStoryMapsStore) DeleteStoryMap(ctx context.Context, s *model.StoryMap) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStoryMapsStore) FindStoryMapByMembership(ctx context.Context, membershipID uuid.UUID) (*model.StoryMap, error) {
	args := m.Called(ctx, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoryMap), args.Error(1)
}

// MockHealthStore implements store.HealthStore
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) SchemaStatus(ctx context.Context) (store.SchemaStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(store.SchemaStatus), args.Error(1)
}

// MockNotifier implements server.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendMembershipRequest(ctx context.Context, user *model.User, group *model.Group, managers []*model.User) error {
	return m.Called(ctx, user, group, managers).Error(0)
}

func (m *MockNotifier) SendMembershipApproval(ctx context.Context, user *model.User, group *model.Group) error {
	return m.Called(ctx, user, group).Error(0)
}

func (m *MockNotifier) SendStoryMapInvites(ctx context.Context, inviter *model.User, storyMap *model.StoryMap, memberships []*model.Membership) error {
	return m.Called(ctx, inviter, storyMap, memberships).Error(0)
}

func (m *MockNotifier) SendProjectInvite(ctx context.Context, inviter, user *model.User, project *model.Project, role model.ProjectRole) error {
	return m.Called(ctx, inviter, user, project, role).Error(0)
}

// MockPusher implements server.Pusher
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) NotifyUser(userID uuid.UUID, message interface{}) {
	m.Called(userID, message)
}

func (m *MockPusher) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	return m.Called(w, r, userID).Error(0)
}

// MockFileStore implements server.FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) UploadFile(ctx context.Context, ownerID string, r io.Reader, size int64, fileName, contentType string) (string, error) {
	args := m.Called(ctx, ownerID, r, size, fileName, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) PathFromURL(u string) (string, bool) {
	args := m.Called(u)
	return args.String(0), args.Bool(1)
}

func (m *MockFileStore) SignedURL(ctx context.Context, p string) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, p string) error {
	return m.Called(ctx, p).Error(0)
}

// MockSharedDataStore implements store.SharedDataStore
type MockSharedDataStore struct {
	mock.Mock
}

func (m *MockSharedDataStore) ListDataEntries(ctx context.Context, f store.SharedFilter, opts store.ListOptions) (store.Page[model.DataEntry], error) {
	args := m.Called(ctx, f, opts)
	return args.Get(0).(store.Page[model.DataEntry]), args.Error(1)
}

func (m *MockSharedDataStore) FindDataEntry(ctx context.Context, id uuid.UUID) (*model.DataEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DataEntry), args.Error(1)
}

func (m *MockSharedDataStore) CreateDataEntry(ctx context.Context, e *model.DataEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockSharedDataStore) UpdateDataEntry(ctx context.Context, e *model.DataEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockSharedDataStore) DeleteDataEntry(ctx context.Context, e *model.DataEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockSharedDataStore) SharedTargets(ctx context.Context, entryID uuid.UUID) ([]permission.SharedTarget, error) {
	args := m.Called(ctx, entryID)
	return args.Get(0).([]permission.SharedTarget), args.Error(1)
}

func (m *MockSharedDataStore) ListVisualizationConfigs(ctx context.Context, f store.SharedFilter, opts store.ListOptions) (store.Page[model.VisualizationConfig], error) {
	args := m.Called(ctx, f, opts)
	return args.Get(0).(store.Page[model.VisualizationConfig]), args.Error(1)
}

func (m *MockSharedDataStore) FindVisualizationConfig(ctx context.Context, id uuid.UUID) (*model.VisualizationConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VisualizationConfig), args.Error(1)
}

func (m *MockSharedDataStore) CreateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockSharedDataStore) UpdateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockSharedDataStore) DeleteVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	return m.Called(ctx, v).Error(0)
}

// MockTilesets implements server.TilesetPublisher
type MockTilesets struct {
	mock.Mock
}

func (m *MockTilesets) Publish(v *model.VisualizationConfig) {
	m.Called(v)
}

func (m *MockTilesets) Remove(tilesetID string) {
	m.Called(tilesetID)
}

func (m *MockTilesets) Refresh(ctx context.Context, v *model.VisualizationConfig) (bool, error) {
	args := m.Called(ctx, v)
	return args.Bool(0), args.Error(1)
}
