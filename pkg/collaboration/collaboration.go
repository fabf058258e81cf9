package collaboration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrCannotRequest      = errors.New("user cannot request membership")
)

// Store is the persistence SaveMembership and ApproveMembership need.
// FindUserByEmail and FindMembership return nil, nil when nothing matches.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindMembership(ctx context.Context, listID uuid.UUID, userID *uuid.UUID, email string) (*model.Membership, error)
	GetMembership(ctx context.Context, listID, membershipID uuid.UUID) (*model.Membership, error)
	SaveMembership(ctx context.Context, m *model.Membership) error
}

// SaveInput is what the caller asked for; Status is optional on updates.
type SaveInput struct {
	Email  string
	Role   string
	Status *model.MembershipStatus
}

// ValidationInput is passed to the owner's validation hook before saving.
type ValidationInput struct {
	Role    string
	Status  *model.MembershipStatus
	Current *model.Membership
}

// Validator rejects a membership change by returning an error.
type Validator func(ValidationInput) error

// SaveMembership creates or updates the membership of email in list.
// Unknown emails get a pending-email membership. approved is true only when a
// previous non-approved membership becomes approved.
func SaveMembership(ctx context.Context, store Store, list *model.MembershipList, in SaveInput, validate Validator) (m *model.Membership, approved bool, err error) {
	email := strings.TrimSpace(in.Email)
	user, err := store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}
	current, err := store.FindMembership(ctx, list.ID, userID, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up membership: %w", err)
	}

	if validate != nil {
		if err := validate(ValidationInput{Role: in.Role, Status: in.Status, Current: current}); err != nil {
			return nil, false, err
		}
	}

	var previous *model.MembershipStatus
	if current == nil {
		m = &model.Membership{
			MembershipListID: list.ID,
			UserRole:         in.Role,
			MembershipStatus: model.MembershipApproved,
		}
		if in.Status != nil {
			m.MembershipStatus = *in.Status
		}
		if user != nil {
			m.UserID = userID
			m.User = user
		} else {
			m.PendingEmail = &email
		}
	} else {
		m = current
		status := m.MembershipStatus
		previous = &status
		m.UserRole = in.Role
		if in.Status != nil {
			m.MembershipStatus = *in.Status
		}
	}

	approved = previous != nil && *previous != model.MembershipApproved && m.MembershipStatus == model.MembershipApproved

	if err := store.SaveMembership(ctx, m); err != nil {
		return nil, false, fmt.Errorf("failed to save membership: %w", err)
	}
	return m, approved, nil
}

// ApproveMembership marks a pending membership approved. Already approved
// memberships are returned unchanged.
func ApproveMembership(ctx context.Context, store Store, list *model.MembershipList, membershipID uuid.UUID) (*model.Membership, error) {
	m, err := store.GetMembership(ctx, list.ID, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMembershipNotFound
	}
	if m.IsApproved() {
		return m, nil
	}
	m.MembershipStatus = model.MembershipApproved
	if err := store.SaveMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to approve membership: %w", err)
	}
	return m, nil
}

// The helpers below read list.Memberships, which callers preload.

// MembershipOf returns u's membership in list, or nil.
func MembershipOf(list *model.MembershipList, u *model.User) *model.Membership {
	if list == nil || u == nil {
		return nil
	}
	for i := range list.Memberships {
		m := &list.Memberships[i]
		if m.UserID != nil && *m.UserID == u.ID {
			return m
		}
	}
	return nil
}

// IsMember reports any membership of u, approved or pending.
func IsMember(list *model.MembershipList, u *model.User) bool {
	return MembershipOf(list, u) != nil
}

// IsApprovedMember reports an approved membership of u.
func IsApprovedMember(list *model.MembershipList, u *model.User) bool {
	m := MembershipOf(list, u)
	return m != nil && m.IsApproved()
}

// HasRole reports an approved membership of u with role.
func HasRole(list *model.MembershipList, u *model.User, role string) bool {
	m := MembershipOf(list, u)
	return m != nil && m.IsApproved() && m.UserRole == role
}

// RoleOf returns u's approved role, or "".
func RoleOf(list *model.MembershipList, u *model.User) string {
	if m := MembershipOf(list, u); m != nil && m.IsApproved() {
		return m.UserRole
	}
	return ""
}

// ManagersCount counts approved memberships holding managerRole.
func ManagersCount(list *model.MembershipList, managerRole string) int {
	if list == nil {
		return 0
	}
	n := 0
	for _, m := range list.Memberships {
		if m.IsApproved() && m.UserRole == managerRole {
			n++
		}
	}
	return n
}

// IsSoleManager reports whether u is the only approved manager.
func IsSoleManager(list *model.MembershipList, u *model.User, managerRole string) bool {
	return HasRole(list, u, managerRole) && ManagersCount(list, managerRole) == 1
}

// Managers returns the approved managers' users.
func Managers(list *model.MembershipList, managerRole string) []*model.User {
	var users []*model.User
	if list == nil {
		return users
	}
	for i := range list.Memberships {
		m := &list.Memberships[i]
		if m.IsApproved() && m.UserRole == managerRole && m.User != nil {
			users = append(users, m.User)
		}
	}
	return users
}
