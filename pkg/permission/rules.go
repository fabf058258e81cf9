package permission

import (
	"strings"

	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/model"
)

const groupManager = string(model.GroupRoleManager)

func isGroupManager(u *model.User, list *model.MembershipList) bool {
	return u != nil && collaboration.HasRole(list, u, groupManager)
}

func CanChangeGroup(u *model.User, g *model.Group) bool {
	return g != nil && isGroupManager(u, g.MembershipList)
}

func CanDeleteGroup(u *model.User, g *model.Group) bool {
	return CanChangeGroup(u, g)
}

// CanDeleteGroupAssociation allows a manager of either the parent or the child group.
func CanDeleteGroupAssociation(u *model.User, parent, child *model.Group) bool {
	return CanChangeGroup(u, parent) || CanChangeGroup(u, child)
}

func CanChangeLandscape(u *model.User, l *model.Landscape) bool {
	return l != nil && isGroupManager(u, l.MembershipList)
}

func CanDeleteLandscape(u *model.User, l *model.Landscape) bool {
	return CanChangeLandscape(u, l)
}

func CanAddLandscapeGroup(u *model.User, l *model.Landscape) bool {
	return CanChangeLandscape(u, l)
}

// CanDeleteLandscapeGroup allows a manager of the landscape or of the group.
func CanDeleteLandscapeGroup(u *model.User, l *model.Landscape, g *model.Group) bool {
	return CanChangeLandscape(u, l) || CanChangeGroup(u, g)
}

// CanAddGroupMembership allows joining an open list, or a manager adding members.
func CanAddGroupMembership(u *model.User, list *model.MembershipList) bool {
	if u == nil || list == nil {
		return false
	}
	return list.CanJoin() || isGroupManager(u, list)
}

func CanChangeGroupMembership(u *model.User, list *model.MembershipList) bool {
	return isGroupManager(u, list)
}

// CanDeleteGroupMembership allows users to leave and managers to remove
// members. The last manager cannot remove their own membership.
func CanDeleteGroupMembership(u *model.User, list *model.MembershipList, m *model.Membership) bool {
	if u == nil || m == nil {
		return false
	}
	if m.BelongsTo(u) {
		return !collaboration.IsSoleManager(list, u, groupManager)
	}
	return isGroupManager(u, list)
}

// SharedTarget is a group or landscape a data entry is shared with.
type SharedTarget struct {
	List   *model.MembershipList
	Access model.ShareAccess
}

func isTargetMember(u *model.User, targets []SharedTarget) bool {
	for _, t := range targets {
		if collaboration.IsApprovedMember(t.List, u) {
			return true
		}
	}
	return false
}

func isTargetManager(u *model.User, targets []SharedTarget) bool {
	for _, t := range targets {
		if isGroupManager(u, t.List) {
			return true
		}
	}
	return false
}

func CanChangeDataEntry(u *model.User, e *model.DataEntry) bool {
	return e != nil && e.IsCreatedBy(u)
}

func CanDeleteDataEntry(u *model.User, e *model.DataEntry, targets []SharedTarget) bool {
	if u == nil || e == nil {
		return false
	}
	return e.IsCreatedBy(u) || isTargetManager(u, targets)
}

// CanViewDataEntry allows the creator and members of any target. Targets
// shared with access "all" are visible to any signed-in user.
func CanViewDataEntry(u *model.User, e *model.DataEntry, targets []SharedTarget) bool {
	if u == nil || e == nil {
		return false
	}
	if e.IsCreatedBy(u) || isTargetMember(u, targets) {
		return true
	}
	for _, t := range targets {
		if t.Access == model.ShareAccessAll {
			return true
		}
	}
	return false
}

func CanChangeVisualization(u *model.User, v *model.VisualizationConfig) bool {
	return v != nil && v.IsCreatedBy(u)
}

func CanDeleteVisualization(u *model.User, v *model.VisualizationConfig, targets []SharedTarget) bool {
	if u == nil || v == nil {
		return false
	}
	return v.IsCreatedBy(u) || isTargetManager(u, targets)
}

func CanViewVisualization(u *model.User, v *model.VisualizationConfig, targets []SharedTarget) bool {
	if u == nil || v == nil {
		return false
	}
	return v.IsCreatedBy(u) || isTargetMember(u, targets)
}

func isStoryMapEditor(u *model.User, s *model.StoryMap) bool {
	return collaboration.HasRole(s.MembershipList, u, model.StoryMapRoleEditor)
}

// CanViewStoryMap allows everyone on published maps and members otherwise.
func CanViewStoryMap(u *model.User, s *model.StoryMap) bool {
	if s == nil {
		return false
	}
	if s.IsPublished {
		return true
	}
	if u == nil {
		return false
	}
	return s.IsCreatedBy(u) || collaboration.IsApprovedMember(s.MembershipList, u)
}

func CanChangeStoryMap(u *model.User, s *model.StoryMap) bool {
	if u == nil || s == nil {
		return false
	}
	return s.IsCreatedBy(u) || isStoryMapEditor(u, s)
}

func CanDeleteStoryMap(u *model.User, s *model.StoryMap) bool {
	return CanChangeStoryMap(u, s)
}

func CanSaveStoryMapMembership(u *model.User, s *model.StoryMap) bool {
	return s != nil && s.IsCreatedBy(u)
}

// CanDeleteStoryMapMembership allows the owner, or the invitee by email.
func CanDeleteStoryMapMembership(u *model.User, s *model.StoryMap, m *model.Membership) bool {
	if u == nil || s == nil || m == nil {
		return false
	}
	if s.IsCreatedBy(u) {
		return true
	}
	return strings.EqualFold(m.UserEmail(), u.Email)
}

// ExportTarget holds the resource an export token would address.
type ExportTarget struct {
	UserID  string
	Project *model.Project
	Site    *model.Site
}

// CanManageExportToken applies the per-type export rule.
func (ch *Checker) CanManageExportToken(u *model.User, t model.ExportResourceType, target ExportTarget) bool {
	if u == nil {
		return false
	}
	switch t {
	case model.ExportUser:
		return target.UserID == u.ID.String()
	case model.ExportProject:
		return ch.role(u, target.Project) != ""
	case model.ExportSite:
		if target.Site == nil {
			return false
		}
		return ch.CanViewSite(u, target.Site) || ch.role(u, target.Project) != ""
	}
	return false
}

// CanViewSite allows the owner of an unaffiliated site and any member of
// the project of an affiliated one.
func (ch *Checker) CanViewSite(u *model.User, s *model.Site) bool {
	if u == nil || s == nil {
		return false
	}
	if s.IsUnaffiliated() {
		return s.OwnedBy(u)
	}
	return ch.role(u, s.Project) != ""
}
