package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/auth"
	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/model"
)

func newTestStoryMap(owner *model.User, published bool) *model.StoryMap {
	list := newList(model.EnrollInvite, model.MembershipTypeClosed)
	return &model.StoryMap{
		BaseModel:        model.BaseModel{ID: uuid.New()},
		Title:            "Rivers of the valley",
		CreatedByID:      &owner.ID,
		CreatedBy:        owner,
		IsPublished:      published,
		MembershipListID: &list.ID,
		MembershipList:   list,
	}
}

func TestHandleGetStoryMap(t *testing.T) {
	owner := newTestUser("owner@example.org")

	t.Run("unpublished maps are hidden from anonymous readers", func(t *testing.T) {
		sm := newTestStoryMap(owner, false)
		storyMaps := &MockStoryMapsStore{}
		storyMaps.On("FindStoryMap", mock.Anything, sm.ID).Return(sm, nil)

		w := httptest.NewRecorder()
		handleGetStoryMap(storyMaps)(w, newRequest(t, "GET", "/", nil, nil, map[string]string{"id": sm.ID.String()}))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("owner sees an unpublished map", func(t *testing.T) {
		sm := newTestStoryMap(owner, false)
		storyMaps := &MockStoryMapsStore{}
		storyMaps.On("FindStoryMap", mock.Anything, sm.ID).Return(sm, nil)

		w := httptest.NewRecorder()
		handleGetStoryMap(storyMaps)(w, newRequest(t, "GET", "/", nil, owner, map[string]string{"id": sm.ID.String()}))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("anyone sees a published map", func(t *testing.T) {
		sm := newTestStoryMap(owner, true)
		storyMaps := &MockStoryMapsStore{}
		storyMaps.On("FindStoryMap", mock.Anything, sm.ID).Return(sm, nil)

		w := httptest.NewRecorder()
		handleGetStoryMap(storyMaps)(w, newRequest(t, "GET", "/", nil, nil, map[string]string{"id": sm.ID.String()}))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleInviteStoryMapEditors(t *testing.T) {
	owner := newTestUser("owner@example.org")
	sm := newTestStoryMap(owner, false)
	storyMaps := &MockStoryMapsStore{}
	storyMaps.On("FindStoryMap", mock.Anything, sm.ID).Return(sm, nil)

	t.Run("invites unknown addresses as pending", func(t *testing.T) {
		invitee := "friend@example.org"
		memberships := &MockMembershipsStore{}
		memberships.On("FindUserByEmail", mock.Anything, invitee).Return(nil, nil)
		memberships.On("FindMembership", mock.Anything, sm.MembershipList.ID, (*uuid.UUID)(nil), invitee).Return(nil, nil)
		memberships.On("SaveMembership", mock.Anything, mock.AnythingOfType("*model.Membership")).Return(nil)
		notifier := &MockNotifier{}
		notifier.On("SendStoryMapInvites", mock.Anything, owner, sm, mock.AnythingOfType("[]*model.Membership")).Return(nil)

		w := httptest.NewRecorder()
		body := map[string]interface{}{"userEmails": []string{invitee, owner.Email}}
		handleInviteStoryMapEditors(storyMaps, memberships, notifier)(w, newRequest(t, "POST", "/", body, owner, map[string]string{"id": sm.ID.String()}))

		require.Equal(t, http.StatusOK, w.Code)
		saved := memberships.Calls[2].Arguments.Get(1).(*model.Membership)
		assert.Equal(t, model.MembershipPending, saved.MembershipStatus)
		require.NotNil(t, saved.PendingEmail)
		assert.Equal(t, invitee, *saved.PendingEmail)
		memberships.AssertNumberOfCalls(t, "SaveMembership", 1)
		notifier.AssertExpectations(t)
	})

	t.Run("only the owner invites", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]interface{}{"userEmails": []string{"friend@example.org"}}
		handleInviteStoryMapEditors(storyMaps, &MockMembershipsStore{}, nil)(w, newRequest(t, "POST", "/", body, newTestUser("x@example.org"), map[string]string{"id": sm.ID.String()}))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "save_not_allowed", decodeError(t, w).Code)
	})
}

func TestHandleApproveStoryMapMembership(t *testing.T) {
	tokens := auth.NewJWTService(&config.TerrasoConfig{JWTSecret: "test-secret", JWTAlgorithm: "HS512", JWTIssuer: "https://terraso.org"})
	owner := newTestUser("owner@example.org")
	invitee := newTestUser("friend@example.org")
	sm := newTestStoryMap(owner, false)
	email := invitee.Email
	pending := &model.Membership{
		BaseModel:        model.BaseModel{ID: uuid.New()},
		MembershipListID: sm.MembershipList.ID,
		UserRole:         model.StoryMapRoleEditor,
		MembershipStatus: model.MembershipPending,
		PendingEmail:     &email,
	}
	token, err := tokens.CreateStoryMapMembershipApproveToken(pending)
	require.NoError(t, err)

	t.Run("invitee accepts", func(t *testing.T) {
		storyMaps := &MockStoryMapsStore{}
		storyMaps.On("FindStoryMapByMembership", mock.Anything, pending.ID).Return(sm, nil)
		memberships := &MockMembershipsStore{}
		m := *pending
		memberships.On("GetMembership", mock.Anything, sm.MembershipList.ID, pending.ID).Return(&m, nil)
		memberships.On("SaveMembership", mock.Anything, &m).Return(nil)

		w := httptest.NewRecorder()
		handleApproveStoryMapMembership(storyMaps, memberships, tokens)(w, newRequest(t, "POST", "/", map[string]string{"token": token}, invitee, nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.MembershipApproved, m.MembershipStatus)
		assert.Equal(t, &invitee.ID, m.UserID)
		assert.Nil(t, m.PendingEmail)
	})

	t.Run("someone else cannot use the token", func(t *testing.T) {
		storyMaps := &MockStoryMapsStore{}
		storyMaps.On("FindStoryMapByMembership", mock.Anything, pending.ID).Return(sm, nil)
		memberships := &MockMembershipsStore{}
		m := *pending
		memberships.On("GetMembership", mock.Anything, sm.MembershipList.ID, pending.ID).Return(&m, nil)

		w := httptest.NewRecorder()
		handleApproveStoryMapMembership(storyMaps, memberships, tokens)(w, newRequest(t, "POST", "/", map[string]string{"token": token}, newTestUser("x@example.org"), nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		memberships.AssertNotCalled(t, "SaveMembership", mock.Anything, mock.Anything)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleApproveStoryMapMembership(&MockStoryMapsStore{}, &MockMembershipsStore{}, tokens)(w, newRequest(t, "POST", "/", map[string]string{"token": "nope"}, invitee, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_token", decodeError(t, w).Code)
	})
}
