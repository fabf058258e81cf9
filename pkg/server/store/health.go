package store

import "context"

// SchemaStatus is the row golang-migrate keeps in terraso_schema_migrations.
type SchemaStatus struct {
	Version uint
	Dirty   bool
}

// HealthStore answers the readiness probe.
type HealthStore interface {
	// SchemaStatus fails when the database is unreachable. A database that
	// was never migrated reports version 0.
	SchemaStatus(ctx context.Context) (SchemaStatus, error)
}
