package permission

//go:generate go run github.com/dmarkham/enumer -type ProjectAction -trimprefix Project -transform snake-upper -text -output project_action.gen.go
//go:generate go run github.com/dmarkham/enumer -type SiteAction -trimprefix Site -transform snake-upper -text -output site_action.gen.go

// ProjectAction is an operation checked against a project's permission table.
type ProjectAction int

const (
	ProjectCreate ProjectAction = iota
	ProjectUpdateRequirements
	ProjectEditPinnedNote
	ProjectArchive
	ProjectAddMember
	ProjectChangeUserRole
	ProjectDeleteUser
	ProjectDelete
	ProjectLeave
	ProjectAddNewSite
	ProjectAddUnaffiliatedSite
	ProjectTransferAffiliatedSite
	ProjectGenerateLink
	ProjectChangeRequiredDepthInterval
)

// SiteAction is an operation checked against one of the site permission tables.
type SiteAction int

const (
	SiteCreate SiteAction = iota
	SiteUpdateSettings
	SiteEnterData
	SiteDelete
	SiteCreateNote
	SiteEditNote
	SiteDeleteNote
	SiteUpdateDepthInterval
)
