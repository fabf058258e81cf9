package endpoints

import (
	"errors"
	"net/http"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/soil"
)

type soilDataPushRequest struct {
	SoilDataEntries []soil.SoilDataPushEntry `json:"soilDataEntries" validate:"required,min=1,dive"`
}

type soilMetadataPushRequest struct {
	SoilMetadataEntries []soil.SoilMetadataPushEntry `json:"soilMetadataEntries" validate:"required,min=1,dive"`
}

// RegisterSoilEndpoints registers site soil data, soil metadata and the
// offline push endpoints.
func RegisterSoilEndpoints(s *server.Server) {
	sitesRouter := s.API().PathPrefix("/sites/{id}").Subrouter()
	sitesRouter.Use(s.JWTMiddleware.Middleware)

	// GET /sites/{id}/soil-data - Soil data with depth intervals and measurements
	sitesRouter.HandleFunc("/soil-data", handleGetSoilData(s.Soil)).Methods("GET")
	sitesRouter.HandleFunc("/soil-data", handleUpdateSoilData(s.Soil)).Methods("PUT")
	sitesRouter.HandleFunc("/soil-data/depth-intervals", handleUpdateSoilDepthInterval(s.Soil)).Methods("PUT")
	sitesRouter.HandleFunc("/soil-data/depth-intervals", handleDeleteSoilDepthInterval(s.Soil)).Methods("DELETE")
	// PUT /sites/{id}/soil-data/depth-dependent - Measurements of one interval
	sitesRouter.HandleFunc("/soil-data/depth-dependent", handleUpdateDepthDependentData(s.Soil)).Methods("PUT")
	sitesRouter.HandleFunc("/soil-metadata", handleGetSoilMetadata(s.Soil)).Methods("GET")
	sitesRouter.HandleFunc("/soil-metadata", handleUpdateSoilMetadata(s.Soil)).Methods("PUT")

	pushRouter := s.API().PathPrefix("").Subrouter()
	pushRouter.Use(s.JWTMiddleware.Middleware)
	// POST /soil-data/push - Apply offline soil data edits per site
	pushRouter.HandleFunc("/soil-data/push", handlePushSoilData(s.Soil)).Methods("POST")
	pushRouter.HandleFunc("/soil-metadata/push", handlePushSoilMetadata(s.Soil)).Methods("POST")
	// POST /site-data/push - Soil data and metadata in one request
	pushRouter.HandleFunc("/site-data/push", handlePushSiteData(s.Soil)).Methods("POST")
}

func handleGetSoilData(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		data, err := svc.SoilData(r.Context(), identity.User(r.Context()), siteID)
		if err != nil {
			respondWithServiceError(w, r, "SoilData", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, data)
	}
}

func handleUpdateSoilData(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		var in soil.SoilDataInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SoilData", err)
			return
		}
		data, err := svc.UpdateSoilData(r.Context(), user, siteID, in)
		if err != nil {
			respondWithServiceError(w, r, "SoilData", "enter_data", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(siteID, "soil_data", "", nil), nil))
		respondWithJSON(w, http.StatusOK, data)
	}
}

func handleUpdateSoilDepthInterval(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		var in soil.DepthIntervalInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SoilDataDepthInterval", err)
			return
		}
		data, err := svc.UpdateDepthInterval(r.Context(), user, siteID, in)
		if err != nil {
			respondWithServiceError(w, r, "SoilDataDepthInterval", "update_depth_interval", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(siteID, "soil_data", in.DepthInterval.String(), nil), nil))
		respondWithJSON(w, http.StatusOK, data)
	}
}

func handleDeleteSoilDepthInterval(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		var interval model.DepthInterval
		if err := decodeJSON(r, &interval); err != nil {
			invalidData(w, "SoilDataDepthInterval", err)
			return
		}
		data, err := svc.DeleteDepthInterval(r.Context(), user, siteID, interval)
		if err != nil {
			respondWithServiceError(w, r, "SoilDataDepthInterval", "update_depth_interval", err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, auditResource(siteID, "soil_data", interval.String(), nil), nil))
		respondWithJSON(w, http.StatusOK, data)
	}
}

func handleUpdateDepthDependentData(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		var in soil.DepthDependentInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "DepthDependentSoilData", err)
			return
		}
		data, err := svc.UpdateDepthDependentData(r.Context(), user, siteID, in)
		if err != nil {
			respondWithServiceError(w, r, "DepthDependentSoilData", "enter_data", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(siteID, "depth_dependent_soil_data", in.DepthInterval.String(), nil), nil))
		respondWithJSON(w, http.StatusOK, data)
	}
}

func handleGetSoilMetadata(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		meta, err := svc.SoilMetadata(r.Context(), identity.User(r.Context()), siteID)
		if err != nil {
			respondWithServiceError(w, r, "SoilMetadata", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, meta)
	}
}

func handleUpdateSoilMetadata(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		siteID, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Site")
			return
		}
		var in soil.SoilMetadataInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SoilMetadata", err)
			return
		}
		meta, err := svc.UpdateSoilMetadata(r.Context(), user, siteID, in)
		if err != nil {
			respondWithServiceError(w, r, "SoilMetadata", "enter_data", err)
			return
		}
		logAudit(r, audit.ChangeEvent(user, auditResource(siteID, "soil_metadata", "", nil), nil))
		respondWithJSON(w, http.StatusOK, meta)
	}
}

// Push results carry a per-entry reason; only failures of the whole push
// become error responses.

func handlePushSoilData(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in soilDataPushRequest
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SoilDataPush", err)
			return
		}
		results, err := svc.PushSoilData(r.Context(), identity.User(r.Context()), in.SoilDataEntries)
		if err != nil {
			respondWithServiceError(w, r, "SoilDataPush", "push", err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	}
}

func handlePushSoilMetadata(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in soilMetadataPushRequest
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SoilMetadataPush", err)
			return
		}
		results, err := svc.PushSoilMetadata(r.Context(), identity.User(r.Context()), in.SoilMetadataEntries)
		if err != nil {
			respondWithServiceError(w, r, "SoilMetadataPush", "push", err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	}
}

func handlePushSiteData(svc *soil.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in soil.SiteDataPush
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "SiteDataPush", err)
			return
		}
		res, err := svc.PushSiteData(r.Context(), identity.User(r.Context()), in)
		if errors.Is(err, soil.ErrEmptyPush) {
			badRequest(w, "invalid_data", err.Error())
			return
		}
		if err != nil {
			respondWithServiceError(w, r, "SiteDataPush", "push", err)
			return
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}
