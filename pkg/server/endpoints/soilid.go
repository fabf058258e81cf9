package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/soilid"
)

type coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type dataMatchesRequest struct {
	coordinates
	Data soilid.InputData `json:"data"`
}

// RegisterSoilIDEndpoints registers soil match lookups and the recorded
// sample responses.
func RegisterSoilIDEndpoints(s *server.Server) {
	soilIDRouter := s.API().PathPrefix("/soil-id").Subrouter()

	// GET /soil-id/list, /soil-id/rank - Recorded responses for client development
	soilIDRouter.HandleFunc("/list", handleSample(soilid.SampleList)).Methods("GET")
	soilIDRouter.HandleFunc("/rank", handleSample(soilid.SampleRank)).Methods("GET")

	private := s.API().PathPrefix("/soil-id").Subrouter()
	private.Use(s.JWTMiddleware.Middleware)
	// GET /soil-id/location-matches?latitude=..&longitude=.. - Matches near a point
	private.HandleFunc("/location-matches", handleLocationMatches(s.SoilID)).Methods("GET")
	// POST /soil-id/data-matches - Matches ranked against entered soil data
	private.HandleFunc("/data-matches", handleDataMatches(s.SoilID)).Methods("POST")
}

func parseCoordinates(r *http.Request) (coordinates, bool) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("latitude"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return coordinates{}, false
	}
	lon, err := strconv.ParseFloat(q.Get("longitude"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return coordinates{}, false
	}
	return coordinates{Latitude: lat, Longitude: lon}, true
}

func handleSample(load func() (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := load()
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "data": data})
	}
}

func handleLocationMatches(svc *soilid.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := parseCoordinates(r)
		if !ok {
			badRequest(w, "invalid_data", "latitude and longitude are required")
			return
		}
		res, err := svc.LocationBasedMatches(r.Context(), c.Latitude, c.Longitude)
		if err != nil {
			respondWithServiceError(w, r, "SoilId", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}

func handleDataMatches(svc *soilid.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in dataMatchesRequest
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SoilId", err)
			return
		}
		res, err := svc.DataBasedMatches(r.Context(), in.Latitude, in.Longitude, in.Data)
		if err != nil {
			respondWithServiceError(w, r, "SoilId", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}
