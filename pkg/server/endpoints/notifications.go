package endpoints

import (
	"net/http"

	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/server"
)

// RegisterNotificationsEndpoint registers the per-user notification
// websocket.
func RegisterNotificationsEndpoint(s *server.Server) {
	ws := s.Router.PathPrefix("/ws").Subrouter()
	ws.Use(tokenFromQuery, s.JWTMiddleware.Middleware)

	// GET /ws/notifications?token=... - Membership and invite pushes
	ws.HandleFunc("/notifications", handleNotifications(s.Hub)).Methods("GET")
}

// tokenFromQuery lets browsers, which cannot set headers on a websocket
// handshake, pass the access token as ?token=.
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}

func handleNotifications(hub server.Pusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.User(r.Context())
		if err := hub.ServeWS(w, r, user.ID); err != nil {
			// the upgrader has already written the handshake error
			logging.Component("notifications").Debug().Err(err).Str("user", user.ID.String()).Msg("websocket upgrade failed")
		}
	}
}
