package gis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [5, 5]}}
  ]
}`

func TestCalculateGeoJSONFeatureArea(t *testing.T) {
	area, err := CalculateGeoJSONFeatureArea([]byte(squareCollection))
	require.NoError(t, err)
	assert.InEpsilon(t, 12391399902.0, area, 0.01)
	assert.InEpsilon(t, 1239139.99, M2ToHectares(area), 0.01)
}

func TestCalculateGeoJSONFeatureArea_MultiPolygon(t *testing.T) {
	data := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[10,0],[11,0],[11,1],[10,1],[10,0]]]
	]}}]}`
	area, err := CalculateGeoJSONFeatureArea([]byte(data))
	require.NoError(t, err)
	assert.InEpsilon(t, 2*12391399902.0, area, 0.01)
}

func TestCalculateGeoJSONFeatureArea_Errors(t *testing.T) {
	_, err := CalculateGeoJSONFeatureArea([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.ErrorIs(t, err, ErrEmptyBoundary)

	_, err = CalculateGeoJSONFeatureArea([]byte(`{"type":"FeatureCollection"}`))
	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "features", missing.Key)
	assert.EqualError(t, err, "Expecting key 'features' in feature JSON, but it was missing")

	_, err = CalculateGeoJSONFeatureArea([]byte(`{"features":[{"type":"Feature"}]}`))
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "geometry", missing.Key)

	_, err = CalculateGeoJSONFeatureArea([]byte(`not json`))
	assert.Error(t, err)
}

func TestCalculateGeoJSONCentroid(t *testing.T) {
	c, err := CalculateGeoJSONCentroid([]byte(squareCollection))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c.Lon(), 1e-9)
	assert.InDelta(t, 0.5, c.Lat(), 1e-9)

	_, err = CalculateGeoJSONCentroid([]byte(`{"features":[{"geometry":{"type":"Point","coordinates":[1,2]}}]}`))
	assert.ErrorIs(t, err, ErrEmptyBoundary)
}
