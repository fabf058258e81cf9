// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Stores that the domain packages consume directly (soil.Store,
// soilid.CacheStore, collaboration.Store, auth.UserStore and the export
// interfaces) are asserted here as well, so one *gorm.DB wires every layer.
// Lookups that the domain treats as optional return nil, nil on a miss;
// the rest wrap store.ErrNotFound.
package gorm
