package mapbox

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrColumnNotFound is returned when the configuration names a column the
// dataset header lacks.
var ErrColumnNotFound = errors.New("column not found")

// DatasetConfig is the part of a visualization configuration that maps
// spreadsheet columns onto map points.
type DatasetConfig struct {
	DatasetConfig struct {
		Longitude string `json:"longitude"`
		Latitude  string `json:"latitude"`
	} `json:"datasetConfig"`
	AnnotateConfig struct {
		AnnotationTitle string      `json:"annotationTitle"`
		DataPoints      []DataPoint `json:"dataPoints"`
	} `json:"annotateConfig"`
}

type DataPoint struct {
	Column string `json:"column"`
	Label  string `json:"label"`
}

type field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func ParseDatasetConfig(raw []byte) (*DatasetConfig, error) {
	var cfg DatasetConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("invalid visualization configuration: %w", err)
	}
	if cfg.DatasetConfig.Longitude == "" || cfg.DatasetConfig.Latitude == "" {
		return nil, errors.New("invalid visualization configuration: longitude and latitude columns are required")
	}
	return &cfg, nil
}

// DatasetFeatures reads a CSV with a header row and emits one point per row
// with parseable coordinates. Each point carries the annotation title and
// the configured data points as a JSON encoded "fields" property.
func DatasetFeatures(r io.Reader, cfg *DatasetConfig) (*geojson.FeatureCollection, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	column := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		return i, nil
	}

	lonIdx, err := column(cfg.DatasetConfig.Longitude)
	if err != nil {
		return nil, err
	}
	latIdx, err := column(cfg.DatasetConfig.Latitude)
	if err != nil {
		return nil, err
	}
	type point struct {
		label string
		index int
	}
	points := make([]point, 0, len(cfg.AnnotateConfig.DataPoints))
	for _, dp := range cfg.AnnotateConfig.DataPoints {
		i, err := column(dp.Column)
		if err != nil {
			return nil, err
		}
		label := dp.Label
		if label == "" {
			label = dp.Column
		}
		points = append(points, point{label: label, index: i})
	}
	titleIdx, hasTitle := index[cfg.AnnotateConfig.AnnotationTitle]
	hasTitle = hasTitle && cfg.AnnotateConfig.AnnotationTitle != ""

	cell := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	fc := geojson.NewFeatureCollection()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(cell(row, lonIdx)), 64)
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(cell(row, latIdx)), 64)
		if lonErr != nil || latErr != nil {
			continue
		}

		fields := make([]field, 0, len(points))
		for _, p := range points {
			fields = append(fields, field{Label: p.label, Value: cell(row, p.index)})
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}

		f := geojson.NewFeature(orb.Point{lon, lat})
		if hasTitle {
			f.Properties["title"] = cell(row, titleIdx)
		} else {
			f.Properties["title"] = nil
		}
		f.Properties["fields"] = string(encoded)
		fc.Append(f)
	}
	return fc, nil
}
