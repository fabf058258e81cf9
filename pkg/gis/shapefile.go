package gis

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const shpFileCode = 9994

// ESRI shape types. The Z and M variants share the X/Y layout of their base
// type and only append extra arrays, which are ignored.
const (
	shpNull        = 0
	shpPoint       = 1
	shpPolyLine    = 3
	shpPolygon     = 5
	shpMultiPoint  = 8
	shpPointZ      = 11
	shpPolyLineZ   = 13
	shpPolygonZ    = 15
	shpMultiPointZ = 18
	shpPointM      = 21
	shpPolyLineM   = 23
	shpPolygonM    = 25
	shpMultiPointM = 28
)

var errInvalidShapefile = errors.New("Invalid shapefile")

// parseShapefileZip reads an archive holding the .shp, .shx and .prj members
// of one layer, plus an optional .dbf with attributes.
func parseShapefileZip(data []byte) (*geojson.FeatureCollection, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	members := map[string]*zip.File{}
	for _, f := range zr.File {
		ext := strings.ToLower(f.Name[strings.LastIndex(f.Name, ".")+1:])
		if _, seen := members[ext]; !seen && strings.Contains(f.Name, ".") {
			members[ext] = f
		}
	}
	if members["shp"] == nil || members["shx"] == nil || members["prj"] == nil {
		return nil, errInvalidShapefile
	}

	shp, err := readZipFile(members["shp"])
	if err != nil {
		return nil, err
	}
	prj, err := readZipFile(members["prj"])
	if err != nil {
		return nil, err
	}
	project, err := projectionFor(string(prj))
	if err != nil {
		return nil, err
	}

	var attrs []map[string]interface{}
	if f := members["dbf"]; f != nil {
		dbf, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		if attrs, err = parseDBF(dbf); err != nil {
			return nil, fmt.Errorf("dbf: %w", err)
		}
	}

	geoms, err := decodeShp(shp)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for i, g := range geoms {
		if g == nil {
			continue
		}
		var props map[string]interface{}
		if i < len(attrs) {
			props = attrs[i]
		}
		fc.Append(newFeature(project(g), props))
	}
	return fc, nil
}

// parseShapefile reads a bare .shp whose coordinates are assumed geographic.
func parseShapefile(data []byte) (*geojson.FeatureCollection, error) {
	geoms, err := decodeShp(data)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, g := range geoms {
		if g != nil {
			fc.Append(geojson.NewFeature(g))
		}
	}
	return fc, nil
}

// decodeShp returns one geometry per record, nil for null shapes.
func decodeShp(data []byte) ([]orb.Geometry, error) {
	if len(data) < 100 || binary.BigEndian.Uint32(data[0:4]) != shpFileCode {
		return nil, errInvalidShapefile
	}
	var geoms []orb.Geometry
	off := 100
	for off+8 <= len(data) {
		contentLen := int(binary.BigEndian.Uint32(data[off+4:off+8])) * 2
		off += 8
		if contentLen < 4 || off+contentLen > len(data) {
			return nil, fmt.Errorf("record at offset %d is truncated", off)
		}
		g, err := decodeShape(data[off : off+contentLen])
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, g)
		off += contentLen
	}
	return geoms, nil
}

type shpReader struct {
	b   []byte
	off int
	err error
}

func (r *shpReader) int32() int {
	if r.err != nil || r.off+4 > len(r.b) {
		r.err = errInvalidShapefile
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.b[r.off:]))
	r.off += 4
	return int(v)
}

func (r *shpReader) float64() float64 {
	if r.err != nil || r.off+8 > len(r.b) {
		r.err = errInvalidShapefile
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.b[r.off:]))
	r.off += 8
	return v
}

func (r *shpReader) point() orb.Point {
	x := r.float64()
	y := r.float64()
	return orb.Point{x, y}
}

func decodeShape(b []byte) (orb.Geometry, error) {
	r := &shpReader{b: b}
	switch t := r.int32(); t {
	case shpNull:
		return nil, nil
	case shpPoint, shpPointZ, shpPointM:
		p := r.point()
		return p, r.err
	case shpMultiPoint, shpMultiPointZ, shpMultiPointM:
		r.off += 32
		n := r.int32()
		mp := make(orb.MultiPoint, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			mp = append(mp, r.point())
		}
		return mp, r.err
	case shpPolyLine, shpPolyLineZ, shpPolyLineM, shpPolygon, shpPolygonZ, shpPolygonM:
		r.off += 32
		numParts := r.int32()
		numPoints := r.int32()
		if r.err != nil || numParts < 0 || numPoints < 0 {
			return nil, errInvalidShapefile
		}
		starts := make([]int, numParts)
		for i := range starts {
			starts[i] = r.int32()
		}
		points := make([]orb.Point, numPoints)
		for i := range points {
			points[i] = r.point()
		}
		if r.err != nil {
			return nil, r.err
		}
		parts := make([]orb.LineString, 0, numParts)
		for i, s := range starts {
			end := numPoints
			if i+1 < numParts {
				end = starts[i+1]
			}
			if s < 0 || s > end || end > numPoints {
				return nil, errInvalidShapefile
			}
			parts = append(parts, orb.LineString(points[s:end]))
		}
		switch t {
		case shpPolyLine, shpPolyLineZ, shpPolyLineM:
			if len(parts) == 1 {
				return parts[0], nil
			}
			return orb.MultiLineString(parts), nil
		}
		return assemblePolygons(parts), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %d", t)
	}
}

// assemblePolygons groups rings into polygons. Shapefiles store outer rings
// clockwise and holes counter-clockwise; GeoJSON wants the opposite.
func assemblePolygons(parts []orb.LineString) orb.Geometry {
	var mp orb.MultiPolygon
	for _, p := range parts {
		ring := orb.Ring(p)
		switch {
		case ring.Orientation() == orb.CW:
			ring.Reverse()
			mp = append(mp, orb.Polygon{ring})
		case len(mp) == 0:
			mp = append(mp, orb.Polygon{ring})
		default:
			ring.Reverse()
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
		}
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

// projectionFor returns the transform to WGS84 longitude/latitude for the
// coordinate system described by a .prj file. Geographic systems pass through
// and web mercator is inverted; other projections are rejected.
func projectionFor(wkt string) (func(orb.Geometry) orb.Geometry, error) {
	upper := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(strings.TrimSpace(upper), "GEOGCS"):
		return func(g orb.Geometry) orb.Geometry { return g }, nil
	case strings.Contains(upper, "MERCATOR_AUXILIARY_SPHERE"), strings.Contains(upper, "PSEUDO-MERCATOR"),
		strings.Contains(upper, "POPULAR VISUALISATION"):
		return func(g orb.Geometry) orb.Geometry { return transform(g, inverseWebMercator) }, nil
	}
	return nil, fmt.Errorf("unsupported projection: %.60s", wkt)
}

const earthRadius = 6378137.0

func inverseWebMercator(p orb.Point) orb.Point {
	lon := p[0] / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(p[1]/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return orb.Point{lon, lat}
}

func transform(g orb.Geometry, fn func(orb.Point) orb.Point) orb.Geometry {
	line := func(ls []orb.Point) {
		for i := range ls {
			ls[i] = fn(ls[i])
		}
	}
	switch v := g.(type) {
	case orb.Point:
		return fn(v)
	case orb.MultiPoint:
		line(v)
	case orb.LineString:
		line(v)
	case orb.MultiLineString:
		for _, ls := range v {
			line(ls)
		}
	case orb.Polygon:
		for _, r := range v {
			line(r)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			for _, r := range p {
				line(r)
			}
		}
	}
	return g
}

// parseDBF reads dBase III attribute records in file order.
func parseDBF(b []byte) ([]map[string]interface{}, error) {
	if len(b) < 32 {
		return nil, errInvalidShapefile
	}
	numRecords := int(binary.LittleEndian.Uint32(b[4:8]))
	headerLen := int(binary.LittleEndian.Uint16(b[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(b[10:12]))

	type field struct {
		name string
		kind byte
		size int
	}
	var fields []field
	for off := 32; off+32 <= headerLen && off < len(b) && b[off] != 0x0D; off += 32 {
		name := string(bytes.TrimRight(b[off:off+11], "\x00"))
		fields = append(fields, field{name: name, kind: b[off+11], size: int(b[off+16])})
	}

	records := make([]map[string]interface{}, 0, numRecords)
	for i := 0; i < numRecords; i++ {
		start := headerLen + i*recordLen
		if start+recordLen > len(b) {
			break
		}
		rec := b[start : start+recordLen]
		props := map[string]interface{}{}
		pos := 1
		for _, f := range fields {
			if pos+f.size > len(rec) {
				break
			}
			raw := strings.TrimSpace(string(rec[pos : pos+f.size]))
			pos += f.size
			if raw == "" {
				props[f.name] = nil
				continue
			}
			switch f.kind {
			case 'N', 'F':
				if v, err := strconv.ParseFloat(raw, 64); err == nil {
					props[f.name] = v
					continue
				}
			case 'L':
				props[f.name] = strings.ContainsAny(raw, "YyTt")
				continue
			}
			props[f.name] = raw
		}
		records = append(records, props)
	}
	return records, nil
}
