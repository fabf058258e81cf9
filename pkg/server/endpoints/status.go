package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

// StatusResponse is the JSON form of the status page.
type StatusResponse struct {
	Version string `json:"version"`
}

// HealthResponse reports whether the database answered and which
// migration it is on.
type HealthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	SchemaVersion uint   `json:"schemaVersion"`
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width">
    <title>Terraso Status</title>
  </head>
  <body>
    <main>
      <h1>Status</h1>
      <p class="status-text">Your Terraso server is running!</p>
      <dl>
        <dt>Details:</dt>
        <dd>Version {{.Version}}</dd>
        <dd>API <a href="{{.APIBaseURL}}/api/v1">{{.APIBaseURL}}/api/v1</a></dd>
        <dd>Web client <a href="{{.WebClientURL}}">{{.WebClientURL}}</a></dd>
      </dl>
    </main>
  </body>
</html>
`))

// RegisterStatusEndpoints registers the status page, health check and
// metrics on the root router.
func RegisterStatusEndpoints(s *server.Server) {
	cfg := s.Config

	// GET / - Status page (no auth required)
	s.Router.HandleFunc("/", handleStatus(cfg.APIBaseURL, cfg.WebClientURL)).Methods("GET")
	// GET /healthz - Database connectivity
	s.Router.HandleFunc("/healthz", handleHealth(s.HealthStore)).Methods("GET")

	if cfg.IsMetricsEnabled() {
		s.Router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
}

func handleStatus(apiBaseURL, webClientURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept")
		if r.URL.Query().Get("format") == "json" || strings.Contains(accept, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(StatusResponse{Version: server.Version})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = statusPage.Execute(w, map[string]string{
			"Version":      server.Version,
			"APIBaseURL":   strings.TrimRight(apiBaseURL, "/"),
			"WebClientURL": webClientURL,
		})
	}
}

func handleHealth(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		st, err := healthStore.SchemaStatus(ctx)
		if err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", Database: err.Error()})
			return
		}
		if st.Dirty {
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:        "error",
				Database:      fmt.Sprintf("migration %d is dirty", st.Version),
				SchemaVersion: st.Version,
			})
			return
		}
		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok", SchemaVersion: st.Version})
	}
}
