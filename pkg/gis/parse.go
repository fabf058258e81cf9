package gis

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/techmatters/terraso-go/pkg/logging"
)

// Error codes returned to clients for unparseable uploads.
const (
	CodeInvalidKML       = "invalid_kml_file"
	CodeInvalidKMZ       = "invalid_kmz_file"
	CodeInvalidGeoJSON   = "invalid_geojson_file"
	CodeInvalidGPX       = "invalid_gpx_file"
	CodeInvalidShapefile = "invalid_shapefile"
	CodeInvalidFileType  = "invalid_file_type"
)

// ParseError carries the client-facing code and the underlying cause.
type ParseError struct {
	Code string
	Err  error
}

func (e *ParseError) Error() string {
	return e.Code
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errInvalidKMZ = errors.New("Invalid kmz file")

type parser struct {
	code  string
	parse func([]byte) (*geojson.FeatureCollection, error)
}

var parsers = map[string]parser{
	".kml":     {CodeInvalidKML, parseKML},
	".kmz":     {CodeInvalidKMZ, parseKMZ},
	".geojson": {CodeInvalidGeoJSON, parseGeoJSON},
	".json":    {CodeInvalidGeoJSON, parseGeoJSON},
	".gpx":     {CodeInvalidGPX, parseGPX},
	".zip":     {CodeInvalidShapefile, parseShapefileZip},
	".shp":     {CodeInvalidShapefile, parseShapefile},
}

// SupportedExtensions lists the file extensions ParseFile accepts.
func SupportedExtensions() []string {
	return []string{".kml", ".kmz", ".geojson", ".json", ".gpx", ".zip", ".shp"}
}

// ParseFile converts the named upload into a GeoJSON feature collection,
// choosing the format by extension.
func ParseFile(name string, r io.Reader) (*geojson.FeatureCollection, error) {
	ext := strings.ToLower(path.Ext(name))
	p, ok := parsers[ext]
	if !ok {
		return nil, &ParseError{Code: CodeInvalidFileType, Err: fmt.Errorf("unsupported extension %q", ext)}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Code: p.code, Err: err}
	}
	fc, err := p.parse(data)
	if err != nil {
		logging.Component("gis").Error().Err(err).Str("file", name).Msg("failed to parse file")
		return nil, &ParseError{Code: p.code, Err: err}
	}
	return fc, nil
}

func parseGeoJSON(data []byte) (*geojson.FeatureCollection, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case "FeatureCollection":
		return geojson.UnmarshalFeatureCollection(data)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "":
		return nil, &MissingKeyError{Key: "type"}
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(g.Geometry()))
	return fc, nil
}

func parseKMZ(data []byte) (*geojson.FeatureCollection, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}
		kml, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		return parseKML(kml)
	}
	return nil, errInvalidKMZ
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func newFeature(g orb.Geometry, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
