package store

import (
	"context"
	"time"
)

// MaintenanceStore runs operator housekeeping.
type MaintenanceStore interface {
	// HardDelete permanently removes rows soft deleted before cutoff and
	// returns the number of rows removed per table.
	HardDelete(ctx context.Context, cutoff time.Time) (map[string]int64, error)
}
