package permission

import (
	"errors"

	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/model"
)

var ErrUnrecognized = errors.New("Unrecognized permission in this context")

// RoleLookup resolves the approved role of user in project, or "" when there is none.
type RoleLookup func(user *model.User, project *model.Project) model.ProjectRole

// PreloadedRoles reads the role from the project's preloaded membership list.
func PreloadedRoles(user *model.User, project *model.Project) model.ProjectRole {
	if project == nil {
		return ""
	}
	return model.ProjectRole(collaboration.RoleOf(project.MembershipList, user))
}

// Context carries the records a predicate may need. Fields irrelevant to an
// action can stay nil.
type Context struct {
	Project       *model.Project
	Site          *model.Site
	SiteNote      *model.SiteNote
	SourceProject *model.Project
	TargetProject *model.Project
}

// siteProject returns the project an affiliated site belongs to.
func (c Context) siteProject() *model.Project {
	if c.Site != nil && c.Site.Project != nil {
		return c.Site.Project
	}
	return c.Project
}

type predicate func(ch *Checker, u *model.User, c Context) bool

// Rule is a named predicate.
type Rule struct {
	Name  string
	check predicate
}

var (
	ruleCreate               = Rule{"create", (*Checker).create}
	ruleManageProject        = Rule{"manage_project", (*Checker).manageProject}
	ruleBeProjectMember      = Rule{"be_project_member", (*Checker).beProjectMember}
	ruleAddNewSite           = Rule{"add_new_site_to_project", (*Checker).addNewSite}
	ruleAddUnaffiliatedSite  = Rule{"add_unaffiliated_site_to_project", (*Checker).addUnaffiliatedSite}
	ruleTransferAffiliated   = Rule{"transfer_affiliated_site", (*Checker).transferAffiliatedSite}
	ruleManageUnaffiliated   = Rule{"manage_unaffiliated_site", (*Checker).manageUnaffiliatedSite}
	ruleManageSiteProject    = Rule{"manage_project", (*Checker).manageSiteProject}
	ruleContribute           = Rule{"contribute", (*Checker).contribute}
	ruleEditAffiliatedNote   = Rule{"edit_affiliated_note", (*Checker).editAffiliatedNote}
	ruleDeleteAffiliatedNote = Rule{"delete_affiliated_note", (*Checker).deleteAffiliatedNote}
)

var projectTable = map[ProjectAction]Rule{
	ProjectCreate:                      ruleCreate,
	ProjectUpdateRequirements:          ruleManageProject,
	ProjectEditPinnedNote:              ruleManageProject,
	ProjectArchive:                     ruleManageProject,
	ProjectAddMember:                   ruleManageProject,
	ProjectChangeUserRole:              ruleManageProject,
	ProjectDeleteUser:                  ruleManageProject,
	ProjectDelete:                      ruleManageProject,
	ProjectGenerateLink:                ruleManageProject,
	ProjectChangeRequiredDepthInterval: ruleManageProject,
	ProjectLeave:                       ruleBeProjectMember,
	ProjectAddNewSite:                  ruleAddNewSite,
	ProjectAddUnaffiliatedSite:         ruleAddUnaffiliatedSite,
	ProjectTransferAffiliatedSite:      ruleTransferAffiliated,
}

var baseSiteTable = map[SiteAction]Rule{
	SiteCreate: ruleCreate,
}

var unaffiliatedSiteTable = map[SiteAction]Rule{
	SiteUpdateSettings:      ruleManageUnaffiliated,
	SiteEnterData:           ruleManageUnaffiliated,
	SiteDelete:              ruleManageUnaffiliated,
	SiteCreateNote:          ruleManageUnaffiliated,
	SiteEditNote:            ruleManageUnaffiliated,
	SiteDeleteNote:          ruleManageUnaffiliated,
	SiteUpdateDepthInterval: ruleManageUnaffiliated,
}

var affiliatedSiteTable = map[SiteAction]Rule{
	SiteUpdateSettings:      ruleManageSiteProject,
	SiteDelete:              ruleManageSiteProject,
	SiteEnterData:           ruleContribute,
	SiteCreateNote:          ruleContribute,
	SiteUpdateDepthInterval: ruleContribute,
	SiteEditNote:            ruleEditAffiliatedNote,
	SiteDeleteNote:          ruleDeleteAffiliatedNote,
}

// Checker evaluates permission tables and the rules for the other resources.
type Checker struct {
	roles RoleLookup
}

// NewChecker returns a Checker; a nil lookup reads preloaded membership lists.
func NewChecker(roles RoleLookup) *Checker {
	if roles == nil {
		roles = PreloadedRoles
	}
	return &Checker{roles: roles}
}

// ProjectRule returns the rule bound to action.
func ProjectRule(action ProjectAction) (Rule, error) {
	r, ok := projectTable[action]
	if !ok {
		return Rule{}, ErrUnrecognized
	}
	return r, nil
}

// SiteRule returns the rule bound to action in the table selected by c.Site.
func SiteRule(action SiteAction, c Context) (Rule, error) {
	table := baseSiteTable
	if c.Site != nil {
		if c.Site.IsUnaffiliated() {
			table = unaffiliatedSiteTable
		} else {
			table = affiliatedSiteTable
		}
	}
	r, ok := table[action]
	if !ok {
		return Rule{}, ErrUnrecognized
	}
	return r, nil
}

// CheckProject reports whether user may perform action. Anonymous users are
// always denied.
func (ch *Checker) CheckProject(user *model.User, action ProjectAction, c Context) (bool, error) {
	r, err := ProjectRule(action)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return r.check(ch, user, c), nil
}

func (ch *Checker) CheckSite(user *model.User, action SiteAction, c Context) (bool, error) {
	r, err := SiteRule(action, c)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return r.check(ch, user, c), nil
}

func (ch *Checker) role(u *model.User, p *model.Project) model.ProjectRole {
	if u == nil || p == nil {
		return ""
	}
	return ch.roles(u, p)
}

func (ch *Checker) isManager(u *model.User, p *model.Project) bool {
	return ch.role(u, p) == model.ProjectRoleManager
}

func (ch *Checker) isContributorOrManager(u *model.User, p *model.Project) bool {
	r := ch.role(u, p)
	return r == model.ProjectRoleManager || r == model.ProjectRoleContributor
}

func (ch *Checker) create(u *model.User, _ Context) bool {
	return u != nil
}

func (ch *Checker) manageProject(u *model.User, c Context) bool {
	return ch.isManager(u, c.Project)
}

func (ch *Checker) beProjectMember(u *model.User, c Context) bool {
	return ch.role(u, c.Project) != ""
}

func (ch *Checker) addNewSite(u *model.User, c Context) bool {
	switch ch.role(u, c.Project) {
	case model.ProjectRoleManager:
		return true
	case model.ProjectRoleContributor:
		return c.Project.MemberCanAddSite()
	}
	return false
}

func (ch *Checker) addUnaffiliatedSite(u *model.User, c Context) bool {
	if c.Site == nil || !c.Site.IsUnaffiliated() || !c.Site.OwnedBy(u) {
		return false
	}
	return ch.isContributorOrManager(u, c.Project)
}

func (ch *Checker) transferAffiliatedSite(u *model.User, c Context) bool {
	return ch.isManager(u, c.SourceProject) && ch.isManager(u, c.TargetProject)
}

func (ch *Checker) manageUnaffiliatedSite(u *model.User, c Context) bool {
	return c.Site != nil && c.Site.OwnedBy(u)
}

func (ch *Checker) manageSiteProject(u *model.User, c Context) bool {
	return ch.isManager(u, c.siteProject())
}

func (ch *Checker) contribute(u *model.User, c Context) bool {
	return ch.isContributorOrManager(u, c.siteProject())
}

func (ch *Checker) editAffiliatedNote(u *model.User, c Context) bool {
	if c.SiteNote == nil || !c.SiteNote.IsAuthor(u) {
		return false
	}
	return ch.isContributorOrManager(u, c.siteProject())
}

func (ch *Checker) deleteAffiliatedNote(u *model.User, c Context) bool {
	if c.SiteNote != nil && c.SiteNote.IsAuthor(u) {
		return true
	}
	return ch.isManager(u, c.siteProject())
}
