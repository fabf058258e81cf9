package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
)

func newTestVisualization(owner *model.User) *model.VisualizationConfig {
	entry := &model.DataEntry{
		BaseModel:    model.BaseModel{ID: uuid.New()},
		Name:         "Wells",
		EntryType:    model.EntryTypeFile,
		ResourceType: "csv",
		CreatedByID:  &owner.ID,
	}
	return &model.VisualizationConfig{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		Title:       "Wells map",
		DataEntryID: entry.ID,
		DataEntry:   entry,
		OwnerType:   model.TargetGroup,
		CreatedByID: &owner.ID,
	}
}

func TestHandleCreateVisualizationPublishesTileset(t *testing.T) {
	user := newTestUser("ana@example.org")
	v := newTestVisualization(user)
	list := newList(model.EnrollJoin, model.MembershipTypeOpen)
	list.Memberships = []model.Membership{approvedMembership(list, user, "member")}
	group := &model.Group{BaseModel: model.BaseModel{ID: uuid.New()}, Slug: "river-keepers", MembershipList: list}

	shared := &MockSharedDataStore{}
	shared.On("FindDataEntry", mock.Anything, v.DataEntryID).Return(v.DataEntry, nil)
	shared.On("SharedTargets", mock.Anything, v.DataEntryID).Return([]permission.SharedTarget{}, nil)
	shared.On("CreateVisualizationConfig", mock.Anything, mock.AnythingOfType("*model.VisualizationConfig")).Return(nil)
	groups := &MockGroupsStore{}
	groups.On("FindGroup", mock.Anything, "river-keepers").Return(group, nil)
	tilesets := &MockTilesets{}
	tilesets.On("Publish", mock.MatchedBy(func(c *model.VisualizationConfig) bool {
		return c.DataEntry == v.DataEntry && c.Title == "Wells map"
	})).Return()

	body := map[string]interface{}{
		"title":         "Wells map",
		"dataEntryId":   v.DataEntryID,
		"ownerType":     "group",
		"ownerSlug":     "river-keepers",
		"configuration": map[string]interface{}{"datasetConfig": map[string]string{"longitude": "lon", "latitude": "lat"}},
	}
	w := httptest.NewRecorder()
	handleCreateVisualization(shared, targetFinder{groups: groups}, tilesets)(w, newRequest(t, "POST", "/", body, user, nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	tilesets.AssertExpectations(t)
}

func TestHandleCreateVisualizationWithoutMapbox(t *testing.T) {
	user := newTestUser("ana@example.org")
	v := newTestVisualization(user)
	list := newList(model.EnrollJoin, model.MembershipTypeOpen)
	list.Memberships = []model.Membership{approvedMembership(list, user, "member")}
	group := &model.Group{BaseModel: model.BaseModel{ID: uuid.New()}, Slug: "river-keepers", MembershipList: list}

	shared := &MockSharedDataStore{}
	shared.On("FindDataEntry", mock.Anything, v.DataEntryID).Return(v.DataEntry, nil)
	shared.On("SharedTargets", mock.Anything, v.DataEntryID).Return([]permission.SharedTarget{}, nil)
	shared.On("CreateVisualizationConfig", mock.Anything, mock.Anything).Return(nil)
	groups := &MockGroupsStore{}
	groups.On("FindGroup", mock.Anything, "river-keepers").Return(group, nil)

	body := map[string]interface{}{"title": "Wells map", "dataEntryId": v.DataEntryID, "ownerType": "group", "ownerSlug": "river-keepers"}
	w := httptest.NewRecorder()
	handleCreateVisualization(shared, targetFinder{groups: groups}, nil)(w, newRequest(t, "POST", "/", body, user, nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleGetVisualizationRefreshesPendingTileset(t *testing.T) {
	user := newTestUser("ana@example.org")
	v := newTestVisualization(user)
	tilesetID := "abc"
	v.MapboxTilesetID = &tilesetID
	v.MapboxTilesetStatus = "pending"

	shared := &MockSharedDataStore{}
	shared.On("FindVisualizationConfig", mock.Anything, v.ID).Return(v, nil)
	shared.On("SharedTargets", mock.Anything, v.DataEntryID).Return([]permission.SharedTarget{}, nil)
	tilesets := &MockTilesets{}
	tilesets.On("Refresh", mock.Anything, v).Return(true, nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.VisualizationConfig).MapboxTilesetStatus = "ready"
	})

	w := httptest.NewRecorder()
	handleGetVisualization(shared, tilesets)(w, newRequest(t, "GET", "/", nil, user, map[string]string{"id": v.ID.String()}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mapboxTilesetStatus":"ready"`)
	tilesets.AssertExpectations(t)

	t.Run("ready tilesets are not checked again", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleGetVisualization(shared, tilesets)(w, newRequest(t, "GET", "/", nil, user, map[string]string{"id": v.ID.String()}))
		assert.Equal(t, http.StatusOK, w.Code)
		tilesets.AssertNumberOfCalls(t, "Refresh", 1)
	})
}

func TestHandleUpdateVisualizationRebuildsTileset(t *testing.T) {
	user := newTestUser("ana@example.org")
	v := newTestVisualization(user)

	shared := &MockSharedDataStore{}
	shared.On("FindVisualizationConfig", mock.Anything, v.ID).Return(v, nil)
	shared.On("SharedTargets", mock.Anything, v.DataEntryID).Return([]permission.SharedTarget{}, nil)
	shared.On("UpdateVisualizationConfig", mock.Anything, v).Return(nil)
	tilesets := &MockTilesets{}
	tilesets.On("Publish", v).Return()

	vars := map[string]string{"id": v.ID.String()}
	w := httptest.NewRecorder()
	handleUpdateVisualization(shared, tilesets)(w, newRequest(t, "PUT", "/", map[string]interface{}{"configuration": map[string]interface{}{"annotateConfig": map[string]string{}}}, user, vars))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handleUpdateVisualization(shared, tilesets)(w, newRequest(t, "PUT", "/", map[string]string{"description": "Dug wells only"}, user, vars))
	assert.Equal(t, http.StatusOK, w.Code)
	tilesets.AssertNumberOfCalls(t, "Publish", 1)
}

func TestHandleDeleteVisualizationRemovesTileset(t *testing.T) {
	user := newTestUser("ana@example.org")
	v := newTestVisualization(user)
	tilesetID := "abc"
	v.MapboxTilesetID = &tilesetID

	shared := &MockSharedDataStore{}
	shared.On("FindVisualizationConfig", mock.Anything, v.ID).Return(v, nil)
	shared.On("SharedTargets", mock.Anything, v.DataEntryID).Return([]permission.SharedTarget{}, nil)
	shared.On("DeleteVisualizationConfig", mock.Anything, v).Return(nil)
	tilesets := &MockTilesets{}
	tilesets.On("Remove", "abc").Return()

	w := httptest.NewRecorder()
	handleDeleteVisualization(shared, tilesets)(w, newRequest(t, "DELETE", "/", nil, user, map[string]string{"id": v.ID.String()}))
	assert.Equal(t, http.StatusOK, w.Code)
	tilesets.AssertExpectations(t)

	t.Run("not the creator", func(t *testing.T) {
		other := newTestUser("luis@example.org")
		tilesets := &MockTilesets{}
		w := httptest.NewRecorder()
		handleDeleteVisualization(shared, tilesets)(w, newRequest(t, "DELETE", "/", nil, other, map[string]string{"id": v.ID.String()}))
		assert.NotEqual(t, http.StatusOK, w.Code)
		tilesets.AssertNotCalled(t, "Remove", mock.Anything)
	})
}
