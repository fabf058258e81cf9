// Package mapbox publishes visualization data as Mapbox vector tilesets.
//
// A tileset is built from the data entry behind a visualization: GIS files
// are parsed to GeoJSON, CSV datasets are turned into point features using
// the longitude, latitude and data point columns of the visualization
// configuration. Mapbox tilesets cannot be updated in place, so a rebuild
// removes the previous tileset first.
package mapbox
