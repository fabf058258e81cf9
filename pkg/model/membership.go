package model

import (
	"strings"

	"github.com/google/uuid"
)

// MembershipList is the shared roster behind groups, landscapes, projects and story maps.
type MembershipList struct {
	BaseModel
	EnrollMethod   EnrollMethod   `gorm:"column:enroll_method;default:join" json:"enrollMethod"`
	MembershipType MembershipType `gorm:"column:membership_type;default:open" json:"membershipType"`
	Memberships    []Membership   `gorm:"foreignKey:MembershipListID" json:"memberships,omitempty"`
}

func (MembershipList) TableName() string {
	return "membership_lists"
}

// CanJoin reports whether users may add themselves.
func (l *MembershipList) CanJoin() bool {
	return l.EnrollMethod == EnrollJoin || l.EnrollMethod == EnrollBoth
}

type Membership struct {
	BaseModel
	MembershipListID uuid.UUID        `gorm:"column:membership_list_id;type:uuid" json:"membershipListId"`
	UserID           *uuid.UUID       `gorm:"column:user_id;type:uuid" json:"userId,omitempty"`
	User             *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	UserRole         string           `gorm:"column:user_role" json:"userRole"`
	MembershipStatus MembershipStatus `gorm:"column:membership_status;default:approved" json:"membershipStatus"`
	PendingEmail     *string          `gorm:"column:pending_email" json:"pendingEmail,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}

// UserEmail is the member's email, or the invited address for pending invitations.
func (m *Membership) UserEmail() string {
	if m.User != nil {
		return m.User.Email
	}
	if m.PendingEmail != nil {
		return *m.PendingEmail
	}
	return ""
}

func (m *Membership) IsApproved() bool {
	return m.MembershipStatus == MembershipApproved
}

// BelongsTo reports whether the membership is held by u, by id or by pending email.
func (m *Membership) BelongsTo(u *User) bool {
	if u == nil {
		return false
	}
	if m.UserID != nil && *m.UserID == u.ID {
		return true
	}
	return m.PendingEmail != nil && strings.EqualFold(*m.PendingEmail, u.Email)
}
