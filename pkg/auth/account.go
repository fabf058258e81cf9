package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
)

var ErrEmptyEmail = errors.New("Could not create account, user email is empty")

// UserStore is the persistence AccountService needs.
type UserStore interface {
	GetOrCreateByEmail(ctx context.Context, email string) (*model.User, bool, error)
	Update(ctx context.Context, user *model.User) error
	SetPreference(ctx context.Context, userID uuid.UUID, key, value string) error
	UpdateProfileImage(ctx context.Context, userID uuid.UUID, url string) error
}

// ProfileImageUploader copies a provider's profile picture into storage and
// returns its public URL.
type ProfileImageUploader interface {
	UploadURL(ctx context.Context, userID, url string) (string, error)
}

// AccountService creates or fetches the user behind a provider sign in.
type AccountService struct {
	users  UserStore
	images ProfileImageUploader

	uploadTimeout time.Duration
	wg            sync.WaitGroup
}

func NewAccountService(users UserStore, images ProfileImageUploader) *AccountService {
	return &AccountService{users: users, images: images, uploadTimeout: time.Minute}
}

// PersistUser gets or creates the user for email. New users get the default
// notification preference and any names the provider supplied. The profile
// picture is uploaded in the background.
func (s *AccountService) PersistUser(ctx context.Context, email, firstName, lastName, pictureURL string) (*model.User, bool, error) {
	if email == "" {
		return nil, false, ErrEmptyEmail
	}
	user, created, err := s.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("get or create user: %w", err)
	}

	s.updateProfileImage(user.ID, pictureURL)

	if !created {
		return user, false, nil
	}

	if err := s.users.SetPreference(ctx, user.ID, model.PreferenceNotifications, "true"); err != nil {
		return nil, false, fmt.Errorf("set default preferences: %w", err)
	}
	if firstName != "" || lastName != "" {
		if firstName != "" {
			user.FirstName = firstName
		}
		if lastName != "" {
			user.LastName = lastName
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, false, fmt.Errorf("update user names: %w", err)
		}
	}
	logging.Component("auth").Info().Str("user_id", user.ID.String()).Msg("user signed up")
	return user, true, nil
}

func (s *AccountService) updateProfileImage(userID uuid.UUID, pictureURL string) {
	if pictureURL == "" || s.images == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.uploadTimeout)
		defer cancel()

		log := logging.Component("auth")
		url, err := s.images.UploadURL(ctx, userID.String(), pictureURL)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to upload profile image")
			return
		}
		if err := s.users.UpdateProfileImage(ctx, userID, url); err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to save profile image")
		}
	}()
}

// Wait blocks until background profile image uploads finish.
func (s *AccountService) Wait() {
	s.wg.Wait()
}
