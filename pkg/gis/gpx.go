package gis

import (
	"encoding/xml"
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
	Name string   `xml:"name"`
	Cmt  string   `xml:"cmt"`
	Desc string   `xml:"desc"`
}

type gpxRoute struct {
	Name   string     `xml:"name"`
	Desc   string     `xml:"desc"`
	Points []gpxPoint `xml:"rtept"`
}

type gpxTrack struct {
	Name     string `xml:"name"`
	Desc     string `xml:"desc"`
	Segments []struct {
		Points []gpxPoint `xml:"trkpt"`
	} `xml:"trkseg"`
}

type gpxFile struct {
	XMLName   xml.Name   `xml:"gpx"`
	Waypoints []gpxPoint `xml:"wpt"`
	Routes    []gpxRoute `xml:"rte"`
	Tracks    []gpxTrack `xml:"trk"`
}

// parseGPX maps waypoints to points, routes to line strings and tracks to
// multi line strings with one line per segment.
func parseGPX(data []byte) (*geojson.FeatureCollection, error) {
	var doc gpxFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, w := range doc.Waypoints {
		props := textProps(map[string]string{"name": w.Name, "cmt": w.Cmt, "desc": w.Desc, "time": w.Time})
		if w.Ele != nil {
			props["ele"] = *w.Ele
		}
		fc.Append(newFeature(orb.Point{w.Lon, w.Lat}, props))
	}
	for _, r := range doc.Routes {
		if len(r.Points) == 0 {
			continue
		}
		fc.Append(newFeature(gpxLine(r.Points), textProps(map[string]string{"name": r.Name, "desc": r.Desc})))
	}
	for _, t := range doc.Tracks {
		var mls orb.MultiLineString
		for _, seg := range t.Segments {
			if len(seg.Points) > 0 {
				mls = append(mls, gpxLine(seg.Points))
			}
		}
		if len(mls) == 0 {
			continue
		}
		fc.Append(newFeature(mls, textProps(map[string]string{"name": t.Name, "desc": t.Desc})))
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("gpx file has no waypoints, routes or tracks")
	}
	return fc, nil
}

func gpxLine(points []gpxPoint) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	return ls
}

func textProps(in map[string]string) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
