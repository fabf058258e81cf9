package auth

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

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetOrCreateByEmail(ctx context.Context, email string) (*model.User, bool, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Bool(1), args.Error(2)
}

func (m *MockUserStore) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserStore) SetPreference(ctx context.Context, userID uuid.UUID, key, value string) error {
	return m.Called(ctx, userID, key, value).Error(0)
}

func (m *MockUserStore) UpdateProfileImage(ctx context.Context, userID uuid.UUID, url string) error {
	return m.Called(ctx, userID, url).Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadURL(ctx context.Context, userID, url string) (string, error) {
	args := m.Called(ctx, userID, url)
	return args.String(0), args.Error(1)
}

func TestPersistUser_Create(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	images := new(MockUploader)
	u := testUser()

	users.On("GetOrCreateByEmail", ctx, u.Email).Return(u, true, nil)
	users.On("SetPreference", ctx, u.ID, model.PreferenceNotifications, "true").Return(nil)
	users.On("Update", ctx, mock.MatchedBy(func(x *model.User) bool {
		return x.FirstName == "Ada" && x.LastName == ""
	})).Return(nil)
	images.On("UploadURL", mock.Anything, u.ID.String(), "https://pics/ada.png").Return("https://bucket/ada", nil)
	users.On("UpdateProfileImage", mock.Anything, u.ID, "https://bucket/ada").Return(nil)

	svc := NewAccountService(users, images)
	got, created, err := svc.PersistUser(ctx, u.Email, "Ada", "", "https://pics/ada.png")
	svc.Wait()

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, u, got)
	users.AssertExpectations(t)
	images.AssertExpectations(t)
}

func TestPersistUser_Existing(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	u := testUser()
	users.On("GetOrCreateByEmail", ctx, u.Email).Return(u, false, nil)

	svc := NewAccountService(users, nil)
	_, created, err := svc.PersistUser(ctx, u.Email, "New", "Name", "")

	require.NoError(t, err)
	assert.False(t, created)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "SetPreference", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPersistUser_Errors(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(new(MockUserStore), nil)
	_, _, err := svc.PersistUser(ctx, "", "", "", "")
	assert.ErrorIs(t, err, ErrEmptyEmail)

	users := new(MockUserStore)
	users.On("GetOrCreateByEmail", ctx, "x@example.com").Return(nil, false, errors.New("db down"))
	svc = NewAccountService(users, nil)
	_, _, err = svc.PersistUser(ctx, "x@example.com", "", "", "")
	assert.ErrorContains(t, err, "db down")
}

func TestPersistUser_UploadFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	images := new(MockUploader)
	u := testUser()
	users.On("GetOrCreateByEmail", ctx, u.Email).Return(u, false, nil)
	images.On("UploadURL", mock.Anything, u.ID.String(), "https://pics/x.png").Return("", errors.New("timeout"))

	svc := NewAccountService(users, images)
	_, _, err := svc.PersistUser(ctx, u.Email, "", "", "https://pics/x.png")
	svc.Wait()

	require.NoError(t, err)
	users.AssertNotCalled(t, "UpdateProfileImage", mock.Anything, mock.Anything, mock.Anything)
}
