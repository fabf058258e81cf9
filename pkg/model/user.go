package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	PreferenceGroupNotifications    = "group_notifications"
	PreferenceStoryMapNotifications = "story_map_notifications"
	PreferenceNotifications         = "notifications"
	PreferenceLanguage              = "language"

	DefaultLanguage = "en-us"
)

// SupportedLanguages are the language prefixes accepted from the language preference.
var SupportedLanguages = []string{"en", "es"}

type User struct {
	BaseModel
	Email        string           `gorm:"column:email" json:"email"`
	FirstName    string           `gorm:"column:first_name" json:"firstName"`
	LastName     string           `gorm:"column:last_name" json:"lastName"`
	ProfileImage string           `gorm:"column:profile_image" json:"profileImage"`
	IsActive     bool             `gorm:"column:is_active;default:true" json:"-"`
	IsStaff      bool             `gorm:"column:is_staff" json:"-"`
	Preferences  []UserPreference `gorm:"foreignKey:UserID" json:"preferences,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

// NameAndEmail renders the user as a mail address header value.
func (u *User) NameAndEmail() string {
	return fmt.Sprintf("'%s' <%s>", u.FullName(), u.Email)
}

func (u *User) preference(key string) (string, bool) {
	var found *UserPreference
	for i := range u.Preferences {
		if u.Preferences[i].Key == key {
			if found != nil {
				return "", false
			}
			found = &u.Preferences[i]
		}
	}
	if found == nil {
		return "", false
	}
	return found.Value, true
}

func (u *User) notificationsEnabled(key string) bool {
	v, ok := u.preference(key)
	return ok && strings.EqualFold(v, "true")
}

func (u *User) GroupNotificationsEnabled() bool {
	return u.notificationsEnabled(PreferenceGroupNotifications)
}

func (u *User) StoryMapNotificationsEnabled() bool {
	return u.notificationsEnabled(PreferenceStoryMapNotifications)
}

func (u *User) NotificationsEnabled() bool {
	return u.notificationsEnabled(PreferenceNotifications)
}

// Language returns the preferred language code or DefaultLanguage.
func (u *User) Language() string {
	v, ok := u.preference(PreferenceLanguage)
	if !ok || len(v) < 2 {
		return DefaultLanguage
	}
	for _, lang := range SupportedLanguages {
		if strings.EqualFold(v[:2], lang) {
			return strings.ToLower(v)
		}
	}
	return DefaultLanguage
}

type UserPreference struct {
	TimestampedModel
	UserID uuid.UUID `gorm:"column:user_id;type:uuid" json:"-"`
	Key    string    `gorm:"column:key" json:"key"`
	Value  string    `gorm:"column:value" json:"value"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
