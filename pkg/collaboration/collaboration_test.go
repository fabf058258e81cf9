package collaboration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockStore) FindMembership(ctx context.Context, listID uuid.UUID, userID *uuid.UUID, email string) (*model.Membership, error) {
	args := m.Called(ctx, listID, userID, email)
	mem, _ := args.Get(0).(*model.Membership)
	return mem, args.Error(1)
}

func (m *MockStore) GetMembership(ctx context.Context, listID, membershipID uuid.UUID) (*model.Membership, error) {
	args := m.Called(ctx, listID, membershipID)
	mem, _ := args.Get(0).(*model.Membership)
	return mem, args.Error(1)
}

func (m *MockStore) SaveMembership(ctx context.Context, mem *model.Membership) error {
	return m.Called(ctx, mem).Error(0)
}

func newList() *model.MembershipList {
	l := &model.MembershipList{EnrollMethod: model.EnrollJoin}
	l.ID = uuid.New()
	return l
}

func newUser(email string) *model.User {
	u := &model.User{Email: email}
	u.ID = uuid.New()
	return u
}

func statusPtr(s model.MembershipStatus) *model.MembershipStatus { return &s }

func TestSaveMembershipCreatesForExistingUser(t *testing.T) {
	ctx := context.Background()
	store := &MockStore{}
	list := newList()
	user := newUser("ana@example.org")

	store.On("FindUserByEmail", ctx, "ana@example.org").Return(user, nil)
	store.On("FindMembership", ctx, list.ID, &user.ID, "ana@example.org").Return(nil, nil)
	store.On("SaveMembership", ctx, mock.AnythingOfType("*model.Membership")).Return(nil)

	m, approved, err := SaveMembership(ctx, store, list, SaveInput{Email: " ana@example.org ", Role: "viewer"}, nil)
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, user.ID, *m.UserID)
	assert.Nil(t, m.PendingEmail)
	assert.Equal(t, model.MembershipApproved, m.MembershipStatus)
	store.AssertExpectations(t)
}

func TestSaveMembershipInvitesUnknownEmail(t *testing.T) {
	ctx := context.Background()
	store := &MockStore{}
	list := newList()

	store.On("FindUserByEmail", ctx, "new@example.org").Return(nil, nil)
	store.On("FindMembership", ctx, list.ID, (*uuid.UUID)(nil), "new@example.org").Return(nil, nil)
	store.On("SaveMembership", ctx, mock.Anything).Return(nil)

	m, _, err := SaveMembership(ctx, store, list, SaveInput{
		Email: "new@example.org", Role: "editor", Status: statusPtr(model.MembershipPending),
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, m.UserID)
	require.NotNil(t, m.PendingEmail)
	assert.Equal(t, "new@example.org", *m.PendingEmail)
	assert.Equal(t, model.MembershipPending, m.MembershipStatus)
}

func TestSaveMembershipReportsApproval(t *testing.T) {
	ctx := context.Background()
	list := newList()
	user := newUser("ana@example.org")

	tests := []struct {
		name     string
		previous model.MembershipStatus
		status   *model.MembershipStatus
		want     bool
	}{
		{"pending to approved", model.MembershipPending, statusPtr(model.MembershipApproved), true},
		{"approved stays approved", model.MembershipApproved, statusPtr(model.MembershipApproved), false},
		{"pending without status", model.MembershipPending, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore{}
			existing := &model.Membership{UserID: &user.ID, UserRole: "member", MembershipStatus: tt.previous}
			store.On("FindUserByEmail", ctx, user.Email).Return(user, nil)
			store.On("FindMembership", ctx, list.ID, &user.ID, user.Email).Return(existing, nil)
			store.On("SaveMembership", ctx, existing).Return(nil)

			m, approved, err := SaveMembership(ctx, store, list, SaveInput{Email: user.Email, Role: "manager", Status: tt.status}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, approved)
			assert.Equal(t, "manager", m.UserRole)
		})
	}
}

func TestSaveMembershipValidatorBlocks(t *testing.T) {
	ctx := context.Background()
	store := &MockStore{}
	list := newList()
	user := newUser("ana@example.org")

	store.On("FindUserByEmail", ctx, user.Email).Return(user, nil)
	store.On("FindMembership", ctx, list.ID, &user.ID, user.Email).Return(nil, nil)

	_, _, err := SaveMembership(ctx, store, list, SaveInput{Email: user.Email, Role: "member"}, func(in ValidationInput) error {
		assert.Nil(t, in.Current)
		return ErrCannotRequest
	})
	assert.ErrorIs(t, err, ErrCannotRequest)
	store.AssertNotCalled(t, "SaveMembership", mock.Anything, mock.Anything)
}

func TestApproveMembership(t *testing.T) {
	ctx := context.Background()
	list := newList()
	id := uuid.New()

	store := &MockStore{}
	pending := &model.Membership{MembershipStatus: model.MembershipPending}
	store.On("GetMembership", ctx, list.ID, id).Return(pending, nil)
	store.On("SaveMembership", ctx, pending).Return(nil)

	m, err := ApproveMembership(ctx, store, list, id)
	require.NoError(t, err)
	assert.True(t, m.IsApproved())

	missing := &MockStore{}
	missing.On("GetMembership", ctx, list.ID, id).Return(nil, nil)
	_, err = ApproveMembership(ctx, missing, list, id)
	assert.ErrorIs(t, err, ErrMembershipNotFound)

	failing := &MockStore{}
	failing.On("GetMembership", ctx, list.ID, id).Return(nil, errors.New("db down"))
	_, err = ApproveMembership(ctx, failing, list, id)
	assert.Error(t, err)
}

func TestRosterHelpers(t *testing.T) {
	manager := newUser("m@example.org")
	member := newUser("u@example.org")
	pending := newUser("p@example.org")
	outsider := newUser("o@example.org")

	list := newList()
	list.Memberships = []model.Membership{
		{UserID: &manager.ID, User: manager, UserRole: "manager", MembershipStatus: model.MembershipApproved},
		{UserID: &member.ID, User: member, UserRole: "member", MembershipStatus: model.MembershipApproved},
		{UserID: &pending.ID, User: pending, UserRole: "manager", MembershipStatus: model.MembershipPending},
	}

	assert.True(t, IsMember(list, pending))
	assert.False(t, IsApprovedMember(list, pending))
	assert.False(t, IsMember(list, outsider))
	assert.True(t, HasRole(list, manager, "manager"))
	assert.False(t, HasRole(list, pending, "manager"))
	assert.Equal(t, "member", RoleOf(list, member))
	assert.Equal(t, 1, ManagersCount(list, "manager"))
	assert.True(t, IsSoleManager(list, manager, "manager"))
	assert.Len(t, Managers(list, "manager"), 1)
	assert.Nil(t, MembershipOf(nil, manager))
}
