package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

func ownedSite(owner *model.User) *model.Site {
	return &model.Site{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "North field", OwnerID: &owner.ID}
}

func TestHandleListSitesForCaller(t *testing.T) {
	user := newTestUser("ana@example.org")
	own := ownedSite(user)
	shared := model.Site{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "Shared"}

	sites := &MockSitesStore{}
	sites.On("ListSites", mock.Anything, store.SiteFilter{OwnerID: &user.ID}).Return([]model.Site{*own}, nil)
	sites.On("ListSites", mock.Anything, store.SiteFilter{MemberID: &user.ID}).Return([]model.Site{shared}, nil)

	w := httptest.NewRecorder()
	handleListSites(sites, &MockProjectsStore{}, permission.NewChecker(nil))(w, newRequest(t, "GET", "/api/v1/sites", nil, user, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Sites []model.Site `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sites, 2)
	assert.Equal(t, own.ID, body.Sites[0].ID)
	assert.Equal(t, shared.ID, body.Sites[1].ID)
}

func TestHandleDeleteSite(t *testing.T) {
	checker := permission.NewChecker(nil)
	owner := newTestUser("owner@example.org")
	stranger := newTestUser("stranger@example.org")

	t.Run("owner deletes", func(t *testing.T) {
		site := ownedSite(owner)
		sites := &MockSitesStore{}
		sites.On("FindSite", mock.Anything, site.ID).Return(site, nil)
		sites.On("DeleteSite", mock.Anything, site).Return(nil)

		w := httptest.NewRecorder()
		handleDeleteSite(sites, checker)(w, newRequest(t, "DELETE", "/", nil, owner, map[string]string{"id": site.ID.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		sites.AssertExpectations(t)
	})

	t.Run("others cannot", func(t *testing.T) {
		site := ownedSite(owner)
		sites := &MockSitesStore{}
		sites.On("FindSite", mock.Anything, site.ID).Return(site, nil)

		w := httptest.NewRecorder()
		handleDeleteSite(sites, checker)(w, newRequest(t, "DELETE", "/", nil, stranger, map[string]string{"id": site.ID.String()}))

		assert.Equal(t, http.StatusForbidden, w.Code)
		sites.AssertNotCalled(t, "DeleteSite", mock.Anything, mock.Anything)
	})
}

func TestHandleTransferSites(t *testing.T) {
	checker := permission.NewChecker(nil)
	user := newTestUser("manager@example.org")
	target := projectWith(map[*model.User]model.ProjectRole{user: model.ProjectRoleManager})
	foreign := projectWith(map[*model.User]model.ProjectRole{newTestUser("x@example.org"): model.ProjectRoleManager})

	mine := ownedSite(user)
	theirs := &model.Site{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "Theirs", ProjectID: &foreign.ID, Project: foreign}
	missing := uuid.New()

	projects := &MockProjectsStore{}
	projects.On("FindProject", mock.Anything, target.ID).Return(target, nil)
	sites := &MockSitesStore{}
	sites.On("FindSite", mock.Anything, mine.ID).Return(mine, nil)
	sites.On("FindSite", mock.Anything, theirs.ID).Return(theirs, nil)
	sites.On("FindSite", mock.Anything, missing).Return(nil, store.ErrNotFound)
	sites.On("TransferSites", mock.Anything, []uuid.UUID{mine.ID}, target.ID).Return(nil)

	w := httptest.NewRecorder()
	body := map[string]interface{}{"projectId": target.ID, "siteIds": []uuid.UUID{mine.ID, theirs.ID, missing}}
	handleTransferSites(sites, projects, checker)(w, newRequest(t, "POST", "/", body, user, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var res siteTransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []uuid.UUID{mine.ID}, res.Updated)
	assert.Equal(t, []uuid.UUID{theirs.ID}, res.BadPerm)
	assert.Equal(t, []uuid.UUID{missing}, res.DoesNotExist)
	sites.AssertExpectations(t)
}
