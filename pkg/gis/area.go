package gis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrEmptyBoundary = errors.New("Boundary is empty!")

// MissingKeyError reports a feature collection without an expected member.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("Expecting key '%s' in feature JSON, but it was missing", e.Key)
}

type rawCollection struct {
	Features *[]json.RawMessage `json:"features"`
}

type rawFeature struct {
	Geometry *json.RawMessage `json:"geometry"`
}

// polygons decodes the Polygon and MultiPolygon geometries of a feature
// collection. Other geometry types are skipped.
func polygons(data []byte) ([]orb.Geometry, error) {
	var fc rawCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Features == nil {
		return nil, &MissingKeyError{Key: "features"}
	}
	if len(*fc.Features) == 0 {
		return nil, ErrEmptyBoundary
	}

	var out []orb.Geometry
	for _, raw := range *fc.Features {
		var f rawFeature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		if f.Geometry == nil {
			return nil, &MissingKeyError{Key: "geometry"}
		}
		if string(*f.Geometry) == "null" {
			continue
		}
		g, err := geojson.UnmarshalGeometry(*f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		switch g.Coordinates.(type) {
		case orb.Polygon, orb.MultiPolygon:
			out = append(out, g.Coordinates)
		}
	}
	return out, nil
}

// CalculateGeoJSONFeatureArea sums the area in square meters of the polygons
// in a GeoJSON feature collection.
func CalculateGeoJSONFeatureArea(data []byte) (float64, error) {
	geoms, err := polygons(data)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, g := range geoms {
		total += math.Abs(geo.Area(g))
	}
	return total, nil
}

// CalculateGeoJSONCentroid returns the planar centroid of all polygons in the
// collection.
func CalculateGeoJSONCentroid(data []byte) (orb.Point, error) {
	geoms, err := polygons(data)
	if err != nil {
		return orb.Point{}, err
	}
	var union orb.MultiPolygon
	for _, g := range geoms {
		switch p := g.(type) {
		case orb.Polygon:
			union = append(union, p)
		case orb.MultiPolygon:
			union = append(union, p...)
		}
	}
	if len(union) == 0 {
		return orb.Point{}, ErrEmptyBoundary
	}
	c, _ := planar.CentroidArea(union)
	return c, nil
}

func M2ToHectares(m2 float64) float64 {
	return m2 / 10000
}
