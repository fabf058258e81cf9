package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/permission"
)

// SharedFilter narrows data entry and visualization lists to one target.
type SharedFilter struct {
	TargetType    string
	TargetID      *uuid.UUID
	ResourceTypes []string
}

// SharedDataStore abstracts data entries, shared resources and
// visualization configs.
type SharedDataStore interface {
	ListDataEntries(ctx context.Context, f SharedFilter, opts ListOptions) (Page[model.DataEntry], error)
	// FindDataEntry preloads the creator and shared resources.
	FindDataEntry(ctx context.Context, id uuid.UUID) (*model.DataEntry, error)
	// CreateDataEntry saves the entry and its shared resources together.
	CreateDataEntry(ctx context.Context, e *model.DataEntry) error
	UpdateDataEntry(ctx context.Context, e *model.DataEntry) error
	// DeleteDataEntry removes the entry, its shared resources and its
	// visualizations.
	DeleteDataEntry(ctx context.Context, e *model.DataEntry) error
	// SharedTargets resolves the rosters of the groups and landscapes the
	// entry is shared with.
	SharedTargets(ctx context.Context, entryID uuid.UUID) ([]permission.SharedTarget, error)

	ListVisualizationConfigs(ctx context.Context, f SharedFilter, opts ListOptions) (Page[model.VisualizationConfig], error)
	FindVisualizationConfig(ctx context.Context, id uuid.UUID) (*model.VisualizationConfig, error)
	CreateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error
	UpdateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error
	DeleteVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error
}
