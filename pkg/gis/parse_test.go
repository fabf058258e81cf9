package gis

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <Placemark>
        <name>Field</name>
        <ExtendedData><Data name="crop"><value>maize</value></Data></ExtendedData>
        <Polygon>
          <outerBoundaryIs><LinearRing><coordinates>
            -122.1,37.1,0 -122.0,37.1,0 -122.0,37.2,0 -122.1,37.1,0
          </coordinates></LinearRing></outerBoundaryIs>
        </Polygon>
      </Placemark>
    </Folder>
    <Placemark>
      <name>Well</name>
      <Point><coordinates>-122.05,37.15</coordinates></Point>
    </Placemark>
    <Placemark>
      <MultiGeometry>
        <LineString><coordinates>0,0 1,1</coordinates></LineString>
        <LineString><coordinates>2,2 3,3</coordinates></LineString>
      </MultiGeometry>
    </Placemark>
  </Document>
</kml>`

const sampleGPX = `<?xml version="1.0" standalone="yes"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" version="1.1">
  <wpt lat="45.52" lon="-122.681944"><ele>0</ele><name><![CDATA[Portland]]></name></wpt>
  <rte><name>Route</name><rtept lat="1" lon="2"/><rtept lat="3" lon="4"/></rte>
  <trk><name>Walk</name><trkseg><trkpt lat="1" lon="1"/><trkpt lat="2" lon="2"/></trkseg></trk>
</gpx>`

func TestParseFile_KML(t *testing.T) {
	fc, err := ParseFile("boundary.kml", strings.NewReader(sampleKML))
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	field := fc.Features[0]
	assert.IsType(t, orb.Polygon{}, field.Geometry)
	assert.Equal(t, "Field", field.Properties["Name"])
	assert.Equal(t, "maize", field.Properties["crop"])

	assert.Equal(t, orb.Point{-122.05, 37.15}, fc.Features[1].Geometry)
	assert.IsType(t, orb.MultiLineString{}, fc.Features[2].Geometry)
}

func TestParseFile_KMZ(t *testing.T) {
	fc, err := ParseFile("boundary.KMZ", bytes.NewReader(zipOf(t, map[string][]byte{"doc.kml": []byte(sampleKML)})))
	require.NoError(t, err)
	assert.Len(t, fc.Features, 3)

	_, err = ParseFile("boundary.kmz", bytes.NewReader(zipOf(t, map[string][]byte{"readme.txt": []byte("hi")})))
	assertCode(t, err, CodeInvalidKMZ)
	assert.ErrorIs(t, err, errInvalidKMZ)
}

func TestParseFile_GPX(t *testing.T) {
	fc, err := ParseFile("trip.gpx", strings.NewReader(sampleGPX))
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, orb.Point{-122.681944, 45.52}, fc.Features[0].Geometry)
	assert.Equal(t, "Portland", fc.Features[0].Properties["name"])
	assert.Equal(t, orb.LineString{{2, 1}, {4, 3}}, fc.Features[1].Geometry)
	assert.IsType(t, orb.MultiLineString{}, fc.Features[2].Geometry)
}

func TestParseFile_GeoJSON(t *testing.T) {
	fc, err := ParseFile("area.geojson", strings.NewReader(squareCollection))
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)

	fc, err = ParseFile("point.json", strings.NewReader(`{"type":"Point","coordinates":[1,2]}`))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
}

func TestParseFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"notes.txt", "hello", CodeInvalidFileType},
		{"bad.kml", "<kml><Placemark><Point><coordinates>x,y</coordinates></Point></Placemark></kml>", CodeInvalidKML},
		{"bad.geojson", "{", CodeInvalidGeoJSON},
		{"bad.gpx", "<gpx></gpx>", CodeInvalidGPX},
		{"bad.zip", "not a zip", CodeInvalidShapefile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(tt.name, strings.NewReader(tt.body))
			assertCode(t, err, tt.code)
		})
	}
}

func TestParseFile_Shapefile(t *testing.T) {
	// One clockwise square, as shapefiles store outer rings.
	square := []orb.Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	archive := zipOf(t, map[string][]byte{
		"layer.shp": encodePolygonShp(square),
		"layer.shx": {},
		"layer.prj": []byte(`GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]]]`),
	})
	fc, err := ParseFile("layer.zip", bytes.NewReader(archive))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, orb.CCW, poly[0].Orientation())

	missingPrj := zipOf(t, map[string][]byte{"layer.shp": encodePolygonShp(square), "layer.shx": {}})
	_, err = ParseFile("layer.zip", bytes.NewReader(missingPrj))
	assertCode(t, err, CodeInvalidShapefile)

	projected := zipOf(t, map[string][]byte{
		"layer.shp": encodePolygonShp(square),
		"layer.shx": {},
		"layer.prj": []byte(`PROJCS["NAD_1983_UTM_Zone_10N"]`),
	})
	_, err = ParseFile("layer.zip", bytes.NewReader(projected))
	assertCode(t, err, CodeInvalidShapefile)
}

func TestInverseWebMercator(t *testing.T) {
	p := inverseWebMercator(orb.Point{20037508.342789244, 0})
	assert.InDelta(t, 180, p.Lon(), 1e-6)
	assert.InDelta(t, 0, p.Lat(), 1e-6)
}

func TestParseDBF(t *testing.T) {
	header := make([]byte, 32)
	binary.LittleEndian.PutUint32(header[4:], 1)
	binary.LittleEndian.PutUint16(header[8:], 32+2*32+1)
	binary.LittleEndian.PutUint16(header[10:], 1+6+4)
	field := func(name string, kind byte, size int) []byte {
		f := make([]byte, 32)
		copy(f, name)
		f[11] = kind
		f[16] = byte(size)
		return f
	}
	var b bytes.Buffer
	b.Write(header)
	b.Write(field("NAME", 'C', 6))
	b.Write(field("AREA", 'N', 4))
	b.WriteByte(0x0D)
	// deletion flag, NAME (6), AREA (4)
	b.WriteString(" " + "north " + "  12")

	recs, err := parseDBF(b.Bytes())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "north", recs[0]["NAME"])
	assert.Equal(t, 12.0, recs[0]["AREA"])
}

func TestParseDBFSkipsShortRecords(t *testing.T) {
	header := make([]byte, 32)
	binary.LittleEndian.PutUint32(header[4:], 2)
	binary.LittleEndian.PutUint16(header[8:], 32+32+1)
	binary.LittleEndian.PutUint16(header[10:], 1+5)
	f := make([]byte, 32)
	copy(f, "NAME")
	f[11] = 'C'
	f[16] = 5

	var b bytes.Buffer
	b.Write(header)
	b.Write(f)
	b.WriteByte(0x0D)
	b.WriteString(" south")
	b.WriteString(" we")

	recs, err := parseDBF(b.Bytes())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "south", recs[0]["NAME"])
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, code, pe.Code)
}

func zipOf(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// encodePolygonShp encodes a single-ring polygon shapefile.
func encodePolygonShp(ring []orb.Point) []byte {
	le := binary.LittleEndian
	content := make([]byte, 4+32+4+4+4+16*len(ring))
	le.PutUint32(content[0:], shpPolygon)
	le.PutUint32(content[36:], 1)
	le.PutUint32(content[40:], uint32(len(ring)))
	le.PutUint32(content[44:], 0)
	for i, p := range ring {
		le.PutUint64(content[48+16*i:], math.Float64bits(p[0]))
		le.PutUint64(content[56+16*i:], math.Float64bits(p[1]))
	}

	header := make([]byte, 100)
	binary.BigEndian.PutUint32(header[0:], shpFileCode)
	total := 100 + 8 + len(content)
	binary.BigEndian.PutUint32(header[24:], uint32(total/2))
	le.PutUint32(header[28:], 1000)
	le.PutUint32(header[32:], shpPolygon)

	rec := make([]byte, 8)
	binary.BigEndian.PutUint32(rec[0:], 1)
	binary.BigEndian.PutUint32(rec[4:], uint32(len(content)/2))
	return append(append(header, rec...), content...)
}
