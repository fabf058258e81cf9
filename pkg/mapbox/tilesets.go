package mapbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/techmatters/terraso-go/pkg/gis"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
)

const (
	StatusPending = "pending"
	StatusReady   = "ready"

	maxTitleLength = 64
	buildTimeout   = 5 * time.Minute
)

// ErrUnsupportedEntry is returned for data entries that are neither a CSV
// dataset nor a GIS file.
var ErrUnsupportedEntry = errors.New("data entry cannot be mapped")

// Files opens stored data entry files.
type Files interface {
	PathFromURL(u string) (string, bool)
	Open(ctx context.Context, p string) (io.ReadCloser, error)
}

// Saver persists the tileset id and status of a visualization.
type Saver interface {
	UpdateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error
}

// Publisher builds and removes tilesets in the background so requests do
// not wait on Mapbox.
type Publisher struct {
	api   API
	files Files
	saver Saver
	// Label prefixes tileset names so environments sharing one Mapbox
	// account can be told apart.
	Label string

	wg sync.WaitGroup
}

func NewPublisher(api API, files Files, saver Saver) *Publisher {
	return &Publisher{api: api, files: files, saver: saver}
}

// TilesetID derives the Mapbox id from the visualization id.
func TilesetID(v *model.VisualizationConfig) string {
	return strings.ReplaceAll(v.ID.String(), "-", "")
}

// Publish rebuilds the tileset of v in the background. v.DataEntry must be
// loaded.
func (p *Publisher) Publish(v *model.VisualizationConfig) {
	snapshot := *v
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()
		if err := p.Build(ctx, &snapshot); err != nil {
			logging.Component("mapbox").Error().Err(err).
				Str("visualization_id", snapshot.ID.String()).
				Msg("failed to create mapbox tileset")
		}
	}()
}

// Remove deletes a tileset in the background. Failures are logged.
func (p *Publisher) Remove(tilesetID string) {
	if tilesetID == "" {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()
		p.remove(ctx, tilesetID)
	}()
}

// Wait blocks until background work started so far has finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) remove(ctx context.Context, tilesetID string) {
	if err := p.api.RemoveTileset(ctx, tilesetID); err != nil {
		logging.Component("mapbox").Warn().Err(err).Str("tileset_id", tilesetID).Msg("failed to delete mapbox tileset")
	}
}

// Build replaces the tileset of v and saves the new id with a pending
// status.
func (p *Publisher) Build(ctx context.Context, v *model.VisualizationConfig) error {
	log := logging.Component("mapbox")
	if v.MapboxTilesetID != nil {
		p.remove(ctx, *v.MapboxTilesetID)
	}

	fc, err := p.features(ctx, v)
	if err != nil {
		return err
	}
	log.Info().Str("visualization_id", v.ID.String()).Int("features", len(fc.Features)).Msg("geojson generated for mapbox tileset")

	name := v.Title
	if p.Label != "" {
		name = p.Label + " - " + name
	}
	if r := []rune(name); len(r) > maxTitleLength {
		name = string(r[:maxTitleLength])
	}
	description := v.Title
	if v.Description != "" {
		description = v.Title + " - " + v.Description
	}

	id, err := p.api.CreateTileset(ctx, TilesetID(v), fc, name, description)
	if err != nil {
		return err
	}
	v.MapboxTilesetID = &id
	v.MapboxTilesetStatus = StatusPending
	if err := p.saver.UpdateVisualizationConfig(ctx, v); err != nil {
		return fmt.Errorf("failed to save tileset id: %w", err)
	}
	log.Info().Str("visualization_id", v.ID.String()).Str("tileset_id", id).Msg("mapbox tileset created")
	return nil
}

// Refresh marks a pending tileset ready once Mapbox reports a successful
// publish job. It reports whether the tileset is ready.
func (p *Publisher) Refresh(ctx context.Context, v *model.VisualizationConfig) (bool, error) {
	if v.MapboxTilesetID == nil {
		return false, nil
	}
	if v.MapboxTilesetStatus == StatusReady {
		return true, nil
	}
	published, err := p.api.PublishStatus(ctx, *v.MapboxTilesetID)
	if err != nil || !published {
		return false, err
	}
	v.MapboxTilesetStatus = StatusReady
	return true, p.saver.UpdateVisualizationConfig(ctx, v)
}

func (p *Publisher) features(ctx context.Context, v *model.VisualizationConfig) (*geojson.FeatureCollection, error) {
	entry := v.DataEntry
	if entry == nil || entry.EntryType != model.EntryTypeFile {
		return nil, ErrUnsupportedEntry
	}
	kind := strings.ToLower(strings.TrimPrefix(entry.ResourceType, "."))
	isDataset := kind == "csv"
	if !isDataset && !isGISType(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEntry, entry.ResourceType)
	}

	path, ok := p.files.PathFromURL(entry.URL)
	if !ok {
		return nil, fmt.Errorf("%w: file is not in storage", ErrUnsupportedEntry)
	}
	body, err := p.files.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if isDataset {
		cfg, err := ParseDatasetConfig([]byte(v.Configuration))
		if err != nil {
			return nil, err
		}
		return DatasetFeatures(body, cfg)
	}
	return gis.ParseFile("entry."+kind, body)
}

func isGISType(kind string) bool {
	for _, ext := range gis.SupportedExtensions() {
		if strings.TrimPrefix(ext, ".") == kind {
			return true
		}
	}
	return false
}
