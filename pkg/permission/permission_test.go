package permission

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

func newUser(email string) *model.User {
	u := &model.User{Email: email}
	u.ID = uuid.New()
	return u
}

func member(u *model.User, role string) model.Membership {
	id := u.ID
	return model.Membership{UserID: &id, User: u, UserRole: role, MembershipStatus: model.MembershipApproved}
}

func newProject(members ...model.Membership) *model.Project {
	p := &model.Project{MembershipList: &model.MembershipList{Memberships: members}}
	p.ID = uuid.New()
	return p
}

func TestActionNames(t *testing.T) {
	assert.Equal(t, "ADD_UNAFFILIATED_SITE", ProjectAddUnaffiliatedSite.String())
	assert.Equal(t, "UPDATE_DEPTH_INTERVAL", SiteUpdateDepthInterval.String())

	a, err := ProjectActionString("change_required_depth_interval")
	require.NoError(t, err)
	assert.Equal(t, ProjectChangeRequiredDepthInterval, a)

	var s SiteAction
	require.NoError(t, s.UnmarshalText([]byte("ENTER_DATA")))
	assert.Equal(t, SiteEnterData, s)
	assert.Error(t, s.UnmarshalText([]byte("FLY")))
}

func TestCheckProject(t *testing.T) {
	manager := newUser("m@example.com")
	contributor := newUser("c@example.com")
	viewer := newUser("v@example.com")
	outsider := newUser("o@example.com")
	project := newProject(
		member(manager, string(model.ProjectRoleManager)),
		member(contributor, string(model.ProjectRoleContributor)),
		member(viewer, string(model.ProjectRoleViewer)),
	)
	ch := NewChecker(nil)

	tests := []struct {
		name   string
		user   *model.User
		action ProjectAction
		want   bool
	}{
		{"anyone can create", outsider, ProjectCreate, true},
		{"anonymous cannot create", nil, ProjectCreate, false},
		{"manager archives", manager, ProjectArchive, true},
		{"contributor cannot archive", contributor, ProjectArchive, false},
		{"manager changes depth interval", manager, ProjectChangeRequiredDepthInterval, true},
		{"viewer leaves", viewer, ProjectLeave, true},
		{"outsider cannot leave", outsider, ProjectLeave, false},
		{"manager adds site", manager, ProjectAddNewSite, true},
		{"contributor adds site when setting off", contributor, ProjectAddNewSite, false},
		{"viewer adds site", viewer, ProjectAddNewSite, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ch.CheckProject(tt.user, tt.action, Context{Project: project})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	project.Settings = &model.ProjectSettings{MemberCanAddSiteToProject: true}
	ok, err := ch.CheckProject(contributor, ProjectAddNewSite, Context{Project: project})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckProject_Unrecognized(t *testing.T) {
	_, err := NewChecker(nil).CheckProject(newUser("a@example.com"), ProjectAction(99), Context{})
	assert.ErrorIs(t, err, ErrUnrecognized)
	assert.EqualError(t, err, "Unrecognized permission in this context")
}

func TestCheckProject_SiteTransfers(t *testing.T) {
	u := newUser("u@example.com")
	source := newProject(member(u, string(model.ProjectRoleManager)))
	target := newProject(member(u, string(model.ProjectRoleContributor)))
	ch := NewChecker(nil)

	ok, err := ch.CheckProject(u, ProjectTransferAffiliatedSite, Context{SourceProject: source, TargetProject: target})
	require.NoError(t, err)
	assert.False(t, ok)

	target.MembershipList.Memberships[0].UserRole = string(model.ProjectRoleManager)
	ok, _ = ch.CheckProject(u, ProjectTransferAffiliatedSite, Context{SourceProject: source, TargetProject: target})
	assert.True(t, ok)

	site := &model.Site{}
	site.AddOwner(u)
	ok, _ = ch.CheckProject(u, ProjectAddUnaffiliatedSite, Context{Project: target, Site: site})
	assert.True(t, ok)

	other := newUser("x@example.com")
	site.AddOwner(other)
	ok, _ = ch.CheckProject(u, ProjectAddUnaffiliatedSite, Context{Project: target, Site: site})
	assert.False(t, ok)
}

func TestCheckSite_TableSelection(t *testing.T) {
	owner := newUser("owner@example.com")
	ch := NewChecker(nil)

	ok, err := ch.CheckSite(owner, SiteCreate, Context{})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ch.CheckSite(owner, SiteEnterData, Context{})
	assert.ErrorIs(t, err, ErrUnrecognized)

	site := &model.Site{}
	site.AddOwner(owner)
	_, err = ch.CheckSite(owner, SiteCreate, Context{Site: site})
	assert.ErrorIs(t, err, ErrUnrecognized)
	for _, a := range SiteActionValues() {
		if a == SiteCreate {
			continue
		}
		ok, err := ch.CheckSite(owner, a, Context{Site: site})
		require.NoError(t, err, a.String())
		assert.True(t, ok, a.String())
	}
	ok, _ = ch.CheckSite(newUser("other@example.com"), SiteEnterData, Context{Site: site})
	assert.False(t, ok)

	project := newProject(member(owner, string(model.ProjectRoleManager)))
	site.AddToProject(project)
	_, err = ch.CheckSite(owner, SiteCreate, Context{Site: site})
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestCheckSite_Affiliated(t *testing.T) {
	manager := newUser("m@example.com")
	contributor := newUser("c@example.com")
	viewer := newUser("v@example.com")
	project := newProject(
		member(manager, string(model.ProjectRoleManager)),
		member(contributor, string(model.ProjectRoleContributor)),
		member(viewer, string(model.ProjectRoleViewer)),
	)
	site := &model.Site{}
	site.AddToProject(project)
	note := &model.SiteNote{AuthorID: contributor.ID}
	c := Context{Site: site, SiteNote: note}
	ch := NewChecker(nil)

	tests := []struct {
		name   string
		user   *model.User
		action SiteAction
		want   bool
	}{
		{"manager updates settings", manager, SiteUpdateSettings, true},
		{"contributor cannot delete", contributor, SiteDelete, false},
		{"contributor enters data", contributor, SiteEnterData, true},
		{"viewer cannot enter data", viewer, SiteEnterData, false},
		{"contributor updates depth interval", contributor, SiteUpdateDepthInterval, true},
		{"author edits note", contributor, SiteEditNote, true},
		{"manager cannot edit others note", manager, SiteEditNote, false},
		{"manager deletes note", manager, SiteDeleteNote, true},
		{"viewer cannot delete note", viewer, SiteDeleteNote, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ch.CheckSite(tt.user, tt.action, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// An author demoted to viewer loses edit rights but may still delete.
	project.MembershipList.Memberships[1].UserRole = string(model.ProjectRoleViewer)
	ok, _ := ch.CheckSite(contributor, SiteEditNote, c)
	assert.False(t, ok)
	ok, _ = ch.CheckSite(contributor, SiteDeleteNote, c)
	assert.True(t, ok)
}

func TestCustomRoleLookup(t *testing.T) {
	u := newUser("u@example.com")
	ch := NewChecker(func(*model.User, *model.Project) model.ProjectRole {
		return model.ProjectRoleManager
	})
	ok, err := ch.CheckProject(u, ProjectDelete, Context{Project: &model.Project{}})
	require.NoError(t, err)
	assert.True(t, ok)
}
