// Package server provides the HTTP server for the Terraso REST API.
//
// It uses gorilla/mux for routing and gorilla/handlers for access logging,
// CORS and panic recovery. Request metrics are recorded per route template.
//
// # Server Setup
//
//	srv := server.NewServer(cfg, db, "0.0.0.0", "8000")
//	srv.UsersStore = gormstore.NewUsersStore(db)
//	...
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds the router and database, one store per resource,
// and the services the handlers delegate to: token issuing and exchange,
// permission checks, soil data, soil-id matching, exports, file storage,
// email and websocket notifications.
//
// # Endpoints
//
// Endpoints are registered by the endpoints subpackage under /api/v1, for
// example:
//
//   - /api/v1/auth/tokens - refresh an access/refresh token pair
//   - /api/v1/groups/{slug} - group details and memberships
//   - /api/v1/projects/{id} - projects, memberships and soil settings
//   - /api/v1/sites/{id}/soil-data - soil data of a site
//   - /api/v1/soil-data/push - offline sync
//   - /api/v1/export/token/{type}/{token}/{file} - public exports
package server
