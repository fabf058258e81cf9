package gis

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type kmlCoordinates struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlCoordinates   `xml:"outerBoundaryIs>LinearRing"`
	Inner []kmlCoordinates `xml:"innerBoundaryIs>LinearRing"`
}

type kmlMultiGeometry struct {
	Points   []kmlCoordinates   `xml:"Point"`
	Lines    []kmlCoordinates   `xml:"LineString"`
	Polygons []kmlPolygon       `xml:"Polygon"`
	Multi    []kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlPlacemark struct {
	Name          string            `xml:"name"`
	Description   string            `xml:"description"`
	Data          []kmlData         `xml:"ExtendedData>Data"`
	SimpleData    []kmlSimpleData   `xml:"ExtendedData>SchemaData>SimpleData"`
	Point         *kmlCoordinates   `xml:"Point"`
	LineString    *kmlCoordinates   `xml:"LineString"`
	Polygon       *kmlPolygon       `xml:"Polygon"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
}

// parseKML collects every Placemark in the document regardless of the
// Document/Folder nesting.
func parseKML(data []byte) (*geojson.FeatureCollection, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	fc := geojson.NewFeatureCollection()
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local == "kml" {
			sawRoot = true
		}
		if se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, err
		}
		g, err := pm.geometry()
		if err != nil {
			return nil, err
		}
		if g == nil {
			continue
		}
		fc.Append(newFeature(g, pm.properties()))
	}
	if !sawRoot {
		return nil, errors.New("missing kml root element")
	}
	return fc, nil
}

func (pm *kmlPlacemark) properties() map[string]interface{} {
	props := map[string]interface{}{}
	if s := strings.TrimSpace(pm.Name); s != "" {
		props["Name"] = s
	}
	if s := strings.TrimSpace(pm.Description); s != "" {
		props["Description"] = s
	}
	for _, d := range pm.Data {
		props[d.Name] = strings.TrimSpace(d.Value)
	}
	for _, d := range pm.SimpleData {
		props[d.Name] = strings.TrimSpace(d.Value)
	}
	return props
}

func (pm *kmlPlacemark) geometry() (orb.Geometry, error) {
	switch {
	case pm.Point != nil:
		return kmlPoint(pm.Point.Coordinates)
	case pm.LineString != nil:
		return parseCoordinates(pm.LineString.Coordinates)
	case pm.Polygon != nil:
		return pm.Polygon.polygon()
	case pm.MultiGeometry != nil:
		return pm.MultiGeometry.geometry()
	}
	return nil, nil
}

func kmlPoint(s string) (orb.Geometry, error) {
	ls, err := parseCoordinates(s)
	if err != nil {
		return nil, err
	}
	if len(ls) != 1 {
		return nil, fmt.Errorf("point has %d coordinates", len(ls))
	}
	return ls[0], nil
}

func (p *kmlPolygon) polygon() (orb.Polygon, error) {
	outer, err := parseCoordinates(p.Outer.Coordinates)
	if err != nil {
		return nil, err
	}
	poly := orb.Polygon{orb.Ring(outer)}
	for _, in := range p.Inner {
		ring, err := parseCoordinates(in.Coordinates)
		if err != nil {
			return nil, err
		}
		poly = append(poly, orb.Ring(ring))
	}
	return poly, nil
}

// geometry flattens a MultiGeometry into the matching multi type, or a
// collection when members differ in kind.
func (m *kmlMultiGeometry) geometry() (orb.Geometry, error) {
	var members []orb.Geometry
	for _, p := range m.Points {
		g, err := kmlPoint(p.Coordinates)
		if err != nil {
			return nil, err
		}
		members = append(members, g)
	}
	for _, l := range m.Lines {
		ls, err := parseCoordinates(l.Coordinates)
		if err != nil {
			return nil, err
		}
		members = append(members, ls)
	}
	for i := range m.Polygons {
		p, err := m.Polygons[i].polygon()
		if err != nil {
			return nil, err
		}
		members = append(members, p)
	}
	for i := range m.Multi {
		g, err := m.Multi[i].geometry()
		if err != nil {
			return nil, err
		}
		members = append(members, g)
	}
	return collect(members), nil
}

func collect(members []orb.Geometry) orb.Geometry {
	if len(members) == 0 {
		return nil
	}
	var (
		points orb.MultiPoint
		lines  orb.MultiLineString
		polys  orb.MultiPolygon
	)
	for _, g := range members {
		switch v := g.(type) {
		case orb.Point:
			points = append(points, v)
		case orb.LineString:
			lines = append(lines, v)
		case orb.Polygon:
			polys = append(polys, v)
		}
	}
	switch len(members) {
	case len(points):
		return points
	case len(lines):
		return lines
	case len(polys):
		return polys
	}
	return orb.Collection(members)
}

// parseCoordinates reads whitespace separated "lon,lat[,alt]" tuples.
func parseCoordinates(s string) (orb.LineString, error) {
	var ls orb.LineString
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid coordinate %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: %w", parts[0], err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: %w", parts[1], err)
		}
		ls = append(ls, orb.Point{lon, lat})
	}
	if len(ls) == 0 {
		return nil, errors.New("empty coordinates")
	}
	return ls, nil
}
