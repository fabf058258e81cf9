package store

import (
	"github.com/techmatters/terraso-go/pkg/export"
	"github.com/techmatters/terraso-go/pkg/soil"
	"github.com/techmatters/terraso-go/pkg/soilid"
)

// SoilDataStore persists soil data, depth intervals, project soil settings
// and push history.
type SoilDataStore = soil.Store

// SoilIDCacheStore persists soil-id lookups by coordinate.
type SoilIDCacheStore = soilid.CacheStore

// ExportStore reads what exports contain and keeps export tokens.
type ExportStore interface {
	export.DataSource
	export.TokenStore
}
