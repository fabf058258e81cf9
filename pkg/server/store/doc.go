// Package store provides storage abstractions for the Terraso server.
//
// This package defines interfaces for database operations, allowing the
// endpoints to be decoupled from the specific database implementation and
// tested with mocks. The gorm subpackage implements them.
//
// # Available Stores
//
//   - UsersStore, MembershipsStore: accounts and rosters
//   - GroupsStore, LandscapesStore: community entities
//   - ProjectsStore, SitesStore, SiteNotesStore: project management
//   - SoilDataStore, SoilIDCacheStore: soil data and soil-id lookups
//   - SharedDataStore, StoryMapsStore: shared files, maps and stories
//   - ExportStore, HealthStore, MaintenanceStore
//
// Find methods return ErrNotFound for missing records unless documented
// otherwise.
package store
