package endpoints

import (
	"github.com/techmatters/terraso-go/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterAuthEndpoints(srv)
	RegisterUsersEndpoints(srv)
	RegisterGroupsEndpoints(srv)
	RegisterLandscapesEndpoints(srv)
	RegisterProjectsEndpoints(srv)
	RegisterSitesEndpoints(srv)
	RegisterSoilEndpoints(srv)
	RegisterSoilIDEndpoints(srv)
	RegisterSharedDataEndpoints(srv)
	RegisterStoryMapsEndpoints(srv)
	RegisterGISEndpoints(srv)
	RegisterExportEndpoints(srv)
	RegisterNotificationsEndpoint(srv)
	RegisterStatusEndpoints(srv)
}
