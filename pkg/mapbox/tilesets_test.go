package mapbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/model"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateTileset(ctx context.Context, id string, fc *geojson.FeatureCollection, name, description string) (string, error) {
	args := m.Called(id, fc, name, description)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) RemoveTileset(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockAPI) PublishStatus(ctx context.Context, id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

type memFiles map[string]string

func (f memFiles) PathFromURL(u string) (string, bool) {
	p := strings.TrimPrefix(u, "https://files.example/")
	return p, p != u
}

func (f memFiles) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	data, ok := f[p]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

type savedConfigs struct {
	saved []model.VisualizationConfig
}

func (s *savedConfigs) UpdateVisualizationConfig(ctx context.Context, v *model.VisualizationConfig) error {
	s.saved = append(s.saved, *v)
	return nil
}

func newVisualization(resourceType, url, config string) *model.VisualizationConfig {
	return &model.VisualizationConfig{
		BaseModel:     model.BaseModel{ID: uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")},
		Title:         "Wells",
		Configuration: model.JSON(config),
		DataEntry: &model.DataEntry{
			EntryType:    model.EntryTypeFile,
			ResourceType: resourceType,
			URL:          url,
		},
	}
}

func TestPublisherBuildFromDataset(t *testing.T) {
	api := &mockAPI{}
	files := memFiles{"e1/wells.csv": "name,lat,lon,depth,owner\nNorth well,41.3,-72.5,12,Ana\n"}
	saver := &savedConfigs{}
	p := NewPublisher(api, files, saver)
	p.Label = "staging"

	old := "oldtileset"
	v := newVisualization("csv", "https://files.example/e1/wells.csv", wellsConfig)
	v.MapboxTilesetID = &old
	v.MapboxTilesetStatus = StatusReady

	api.On("RemoveTileset", "oldtileset").Return(nil)
	api.On("CreateTileset", "1b4e28ba2fa111d2883f0016d3cca427",
		mock.MatchedBy(func(fc *geojson.FeatureCollection) bool { return len(fc.Features) == 1 }),
		"staging - Wells", "Wells").Return("1b4e28ba2fa111d2883f0016d3cca427", nil)

	require.NoError(t, p.Build(context.Background(), v))
	api.AssertExpectations(t)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "1b4e28ba2fa111d2883f0016d3cca427", *saver.saved[0].MapboxTilesetID)
	assert.Equal(t, StatusPending, saver.saved[0].MapboxTilesetStatus)
}

func TestPublisherBuildFromGeoJSON(t *testing.T) {
	api := &mockAPI{}
	files := memFiles{"e1/plots.geojson": `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`}
	p := NewPublisher(api, files, &savedConfigs{})

	v := newVisualization("geojson", "https://files.example/e1/plots.geojson", `{}`)
	api.On("CreateTileset", TilesetID(v), mock.Anything, "Wells", "Wells").Return(TilesetID(v), nil)
	require.NoError(t, p.Build(context.Background(), v))
	api.AssertExpectations(t)
}

func TestPublisherBuildRejectsDocuments(t *testing.T) {
	p := NewPublisher(&mockAPI{}, memFiles{}, &savedConfigs{})
	err := p.Build(context.Background(), newVisualization("pdf", "https://files.example/e1/report.pdf", `{}`))
	assert.ErrorIs(t, err, ErrUnsupportedEntry)

	link := newVisualization("", "https://example.org", `{}`)
	link.DataEntry.EntryType = model.EntryTypeLink
	assert.ErrorIs(t, p.Build(context.Background(), link), ErrUnsupportedEntry)
}

func TestPublisherBackgroundWork(t *testing.T) {
	api := &mockAPI{}
	api.On("RemoveTileset", "gone").Return(errors.New("mapbox delete tileset returned 404"))
	p := NewPublisher(api, memFiles{}, &savedConfigs{})

	p.Remove("gone")
	p.Remove("")
	p.Publish(newVisualization("pdf", "https://files.example/e1/report.pdf", `{}`))
	p.Wait()
	api.AssertNumberOfCalls(t, "RemoveTileset", 1)
}

func TestPublisherRefresh(t *testing.T) {
	api := &mockAPI{}
	saver := &savedConfigs{}
	p := NewPublisher(api, memFiles{}, saver)

	ready, err := p.Refresh(context.Background(), newVisualization("csv", "", `{}`))
	require.NoError(t, err)
	assert.False(t, ready)

	id := "abc"
	v := newVisualization("csv", "", `{}`)
	v.MapboxTilesetID = &id
	v.MapboxTilesetStatus = StatusPending
	api.On("PublishStatus", "abc").Return(false, nil).Once()
	ready, err = p.Refresh(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Empty(t, saver.saved)

	api.On("PublishStatus", "abc").Return(true, nil).Once()
	ready, err = p.Refresh(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, ready)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, StatusReady, saver.saved[0].MapboxTilesetStatus)

	ready, err = p.Refresh(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, ready)
	api.AssertNumberOfCalls(t, "PublishStatus", 2)
}
