package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/techmatters/terraso-go/pkg/model"
)

func TestHandleSaveMembershipsJoin(t *testing.T) {
	user := newTestUser("ana@example.org")

	t.Run("joining an open group approves at once", func(t *testing.T) {
		list := newList(model.EnrollJoin, model.MembershipTypeOpen)
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)
		memberships := &MockMembershipsStore{}
		memberships.On("FindUserByEmail", mock.Anything, user.Email).Return(user, nil)
		memberships.On("FindMembership", mock.Anything, list.ID, &user.ID, user.Email).Return(nil, nil)
		memberships.On("SaveMembership", mock.Anything, mock.AnythingOfType("*model.Membership")).Return(nil)
		hub := &MockPusher{}
		hub.On("NotifyUser", user.ID, mock.Anything).Return()

		w := httptest.NewRecorder()
		body := map[string]interface{}{"userEmails": []string{user.Email}}
		handleSaveMemberships(groupRoster(groups), memberships, nil, hub)(w, newRequest(t, "POST", "/", body, user, map[string]string{"slug": g.Slug}))

		assert.Equal(t, http.StatusOK, w.Code)
		saved := memberships.Calls[2].Arguments.Get(1).(*model.Membership)
		assert.Equal(t, model.MembershipApproved, saved.MembershipStatus)
		assert.Equal(t, "member", saved.UserRole)
		hub.AssertExpectations(t)
	})

	t.Run("joining a closed group asks the managers", func(t *testing.T) {
		manager := newTestUser("manager@example.org")
		list := newList(model.EnrollJoin, model.MembershipTypeClosed)
		list.Memberships = []model.Membership{approvedMembership(list, manager, "manager")}
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)
		memberships := &MockMembershipsStore{}
		memberships.On("FindUserByEmail", mock.Anything, user.Email).Return(user, nil)
		memberships.On("FindMembership", mock.Anything, list.ID, &user.ID, user.Email).Return(nil, nil)
		memberships.On("SaveMembership", mock.Anything, mock.AnythingOfType("*model.Membership")).Return(nil)
		notifier := &MockNotifier{}
		notifier.On("SendMembershipRequest", mock.Anything, user, g, []*model.User{manager}).Return(nil)

		w := httptest.NewRecorder()
		body := map[string]interface{}{"userEmails": []string{user.Email}}
		handleSaveMemberships(groupRoster(groups), memberships, notifier, nil)(w, newRequest(t, "POST", "/", body, user, map[string]string{"slug": g.Slug}))

		assert.Equal(t, http.StatusOK, w.Code)
		saved := memberships.Calls[2].Arguments.Get(1).(*model.Membership)
		assert.Equal(t, model.MembershipPending, saved.MembershipStatus)
		notifier.AssertExpectations(t)
	})

	t.Run("members cannot add someone else", func(t *testing.T) {
		list := newList(model.EnrollJoin, model.MembershipTypeOpen)
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)
		memberships := &MockMembershipsStore{}

		w := httptest.NewRecorder()
		body := map[string]interface{}{"userEmails": []string{"other@example.org"}}
		handleSaveMemberships(groupRoster(groups), memberships, nil, nil)(w, newRequest(t, "POST", "/", body, user, map[string]string{"slug": g.Slug}))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "save_not_allowed", decodeError(t, w).Code)
		memberships.AssertNotCalled(t, "SaveMembership", mock.Anything, mock.Anything)
	})

	t.Run("invite only lists reject self joins", func(t *testing.T) {
		list := newList(model.EnrollInvite, model.MembershipTypeOpen)
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)

		w := httptest.NewRecorder()
		body := map[string]interface{}{"userEmails": []string{user.Email}}
		handleSaveMemberships(groupRoster(groups), &MockMembershipsStore{}, nil, nil)(w, newRequest(t, "POST", "/", body, user, map[string]string{"slug": g.Slug}))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandleDeleteMembership(t *testing.T) {
	manager := newTestUser("manager@example.org")
	member := newTestUser("member@example.org")

	t.Run("sole manager cannot leave", func(t *testing.T) {
		list := newList(model.EnrollJoin, model.MembershipTypeOpen)
		own := approvedMembership(list, manager, "manager")
		list.Memberships = []model.Membership{own, approvedMembership(list, member, "member")}
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)
		memberships := &MockMembershipsStore{}
		memberships.On("GetMembership", mock.Anything, list.ID, own.ID).Return(&own, nil)

		w := httptest.NewRecorder()
		vars := map[string]string{"slug": g.Slug, "mid": own.ID.String()}
		handleDeleteMembership(groupRoster(groups), memberships)(w, newRequest(t, "DELETE", "/", nil, manager, vars))

		assert.Equal(t, http.StatusForbidden, w.Code)
		memberships.AssertNotCalled(t, "DeleteMembership", mock.Anything, mock.Anything)
	})

	t.Run("member can leave", func(t *testing.T) {
		list := newList(model.EnrollJoin, model.MembershipTypeOpen)
		own := approvedMembership(list, member, "member")
		list.Memberships = []model.Membership{approvedMembership(list, manager, "manager"), own}
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)
		memberships := &MockMembershipsStore{}
		memberships.On("GetMembership", mock.Anything, list.ID, own.ID).Return(&own, nil)
		memberships.On("DeleteMembership", mock.Anything, &own).Return(nil)

		w := httptest.NewRecorder()
		vars := map[string]string{"slug": g.Slug, "mid": own.ID.String()}
		handleDeleteMembership(groupRoster(groups), memberships)(w, newRequest(t, "DELETE", "/", nil, member, vars))

		assert.Equal(t, http.StatusOK, w.Code)
		memberships.AssertExpectations(t)
	})

	t.Run("manager cannot demote the last manager", func(t *testing.T) {
		list := newList(model.EnrollJoin, model.MembershipTypeOpen)
		own := approvedMembership(list, manager, "manager")
		list.Memberships = []model.Membership{own}
		g := newTestGroup(list)
		groups := &MockGroupsStore{}
		groups.On("FindGroup", mock.Anything, g.Slug).Return(g, nil)
		memberships := &MockMembershipsStore{}
		memberships.On("GetMembership", mock.Anything, list.ID, own.ID).Return(&own, nil)

		w := httptest.NewRecorder()
		vars := map[string]string{"slug": g.Slug, "mid": own.ID.String()}
		handleUpdateMembership(groupRoster(groups), memberships, nil, nil)(w, newRequest(t, "PUT", "/", map[string]string{"userRole": "member"}, manager, vars))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "manager_count", decodeError(t, w).Message)
	})
}
