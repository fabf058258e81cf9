package endpoints

import (
	"errors"
	"io"
	"net/http"

	"github.com/techmatters/terraso-go/pkg/gis"
	"github.com/techmatters/terraso-go/pkg/server"
)

const maxGISUpload = 10 << 20

type areaResult struct {
	AreaM2       float64            `json:"areaM2"`
	AreaHectares float64            `json:"areaHectares"`
	Center       *centerCoordinates `json:"center,omitempty"`
}

// RegisterGISEndpoints registers boundary file parsing and area
// calculation.
func RegisterGISEndpoints(s *server.Server) {
	gisRouter := s.API().PathPrefix("/gis").Subrouter()
	gisRouter.Use(s.JWTMiddleware.Middleware)

	// POST /gis/parse - Convert a KML, KMZ, GPX, shapefile or GeoJSON upload to GeoJSON
	gisRouter.HandleFunc("/parse", handleParseGISFile()).Methods("POST")
	// POST /gis/area - Geodesic area and center of a GeoJSON boundary
	gisRouter.HandleFunc("/area", handleCalculateArea()).Methods("POST")
}

func handleParseGISFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxGISUpload); err != nil {
			badRequest(w, "invalid_upload", err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "invalid_upload", "missing file field 'file'")
			return
		}
		defer file.Close()

		fc, err := gis.ParseFile(header.Filename, file)
		var parseErr *gis.ParseError
		if errors.As(err, &parseErr) {
			respondWithError(w, http.StatusBadRequest, apiError{Code: parseErr.Code, Message: parseErr.Err.Error()})
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, fc)
	}
}

func handleCalculateArea() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGISUpload))
		if err != nil {
			badRequest(w, "invalid_data", err.Error())
			return
		}
		area, err := gis.CalculateGeoJSONFeatureArea(body)
		if err != nil && !errors.Is(err, gis.ErrEmptyBoundary) {
			badRequest(w, "invalid_geojson", err.Error())
			return
		}
		res := areaResult{AreaM2: area, AreaHectares: gis.M2ToHectares(area)}
		if center, err := gis.CalculateGeoJSONCentroid(body); err == nil {
			res.Center = &centerCoordinates{Lat: center.Lat(), Lng: center.Lon()}
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}
