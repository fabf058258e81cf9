// Package gis computes boundary areas and centroids for GeoJSON and converts
// uploaded KML, KMZ, GPX and shapefile archives into GeoJSON feature
// collections.
package gis
