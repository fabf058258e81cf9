// Package model defines the gorm models for the Terraso schema in db/migrations.
//
// Soft-deletable entities embed BaseModel, whose gorm.DeletedAt column keeps
// deleted rows out of default queries. Slugged entities (groups, landscapes,
// data entries, visualization configs, story maps) derive their slug on create
// and reject the names in DisallowedNames.
//
// Memberships are shared: groups, landscapes, projects and story maps each own
// a MembershipList and roles are plain strings interpreted by the owner
// (GroupRole, ProjectRole, StoryMapRoleEditor).
package model
