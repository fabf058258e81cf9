package endpoints

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/export"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server"
)

type exportTokenInput struct {
	ResourceType string `json:"resourceType" validate:"required"`
	ResourceID   string `json:"resourceId" validate:"required"`
}

// RegisterExportEndpoints registers export tokens and the export
// downloads.
func RegisterExportEndpoints(s *server.Server) {
	tokens := s.API().PathPrefix("/export-tokens").Subrouter()
	tokens.Use(s.JWTMiddleware.Middleware)
	// GET /export-tokens - Tokens the caller created
	tokens.HandleFunc("", handleListExportTokens(s.ExportTokens)).Methods("GET")
	tokens.HandleFunc("", handleCreateExportToken(s.ExportTokens)).Methods("POST")
	tokens.HandleFunc("/{token}", handleDeleteExportToken(s.ExportTokens)).Methods("DELETE")

	// GET /export/token/{scope}/{token}/{file} - Public download, e.g. .../my-sites.csv
	public := s.API().PathPrefix("/export/token").Subrouter()
	public.HandleFunc("/{scope}/{token}/{file}", handleExportByToken(s.Exports)).Methods("GET")

	// GET /export/id/{scope}/{id}/{file} - Download for a signed in user
	private := s.API().PathPrefix("/export/id").Subrouter()
	private.Use(s.JWTMiddleware.Middleware)
	private.HandleFunc("/{scope}/{id}/{file}", handleExportByID(s.Exports)).Methods("GET")
}

// splitFileName splits "name.format" into its parts.
func splitFileName(file string) (name, format string) {
	ext := path.Ext(file)
	return strings.TrimSuffix(file, ext), strings.TrimPrefix(ext, ".")
}

func writeExport(w http.ResponseWriter, f *export.File) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Body)
}

func handleListExportTokens(tokens *export.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := tokens.ListTokens(r.Context(), identity.User(r.Context()))
		if err != nil {
			respondWithServiceError(w, r, "ExportToken", "view", err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"tokens": list})
	}
}

func handleCreateExportToken(tokens *export.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		var in exportTokenInput
		if err := decodeJSON(r, &in); err != nil {
			invalidData(w, "ExportToken", err)
			return
		}
		t, ok := model.ParseExportResourceType(in.ResourceType)
		if !ok {
			badRequest(w, "invalid_data", "unknown resource type "+in.ResourceType)
			return
		}
		token, err := tokens.CreateToken(r.Context(), user, t, in.ResourceID)
		if err != nil {
			respondWithServiceError(w, r, "ExportToken", "create", err)
			return
		}
		logAudit(r, audit.CreateEvent(user, auditResource(user.ID, "export_token", string(t)+":"+in.ResourceID, nil), nil))
		respondWithJSON(w, http.StatusOK, token)
	}
}

func handleDeleteExportToken(tokens *export.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		token := mux.Vars(r)["token"]
		if err := tokens.DeleteToken(r.Context(), user, token); err != nil {
			respondWithServiceError(w, r, "ExportToken", "delete", err)
			return
		}
		logAudit(r, audit.DeleteEvent(user, auditResource(user.ID, "export_token", "", nil), nil))
		respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

func handleExportByToken(exports *export.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		scope, ok := export.ParseScope(vars["scope"])
		if !ok {
			notFound(w, "Export")
			return
		}
		name, format := splitFileName(vars["file"])
		f, err := exports.ExportByToken(r.Context(), scope, vars["token"], name, format)
		if err != nil {
			respondWithServiceError(w, r, "Export", "view", err)
			return
		}
		writeExport(w, f)
	}
}

func handleExportByID(exports *export.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		user := identity.User(r.Context())
		scope, ok := export.ParseScope(vars["scope"])
		if !ok {
			notFound(w, "Export")
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			notFound(w, "Export")
			return
		}
		name, format := splitFileName(vars["file"])
		f, err := exports.ExportByID(r.Context(), user, scope, id, name, format)
		if err != nil {
			respondWithServiceError(w, r, "Export", "view", err)
			return
		}
		logAudit(r, audit.ReadEvent(user, auditResource(id, "export", string(scope), nil), audit.Metadata{"format": format}))
		writeExport(w, f)
	}
}
