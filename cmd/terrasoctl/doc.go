// Command terrasoctl runs the Terraso land stewardship API.
//
// Terraso lets groups, landscapes and field projects collaborate on shared
// data: sites with soil observations, uploaded data files and map
// visualizations, and published story maps. The server exposes that data
// over a versioned REST API under /api/v1 and pushes membership updates to
// connected clients over a websocket.
//
// # Architecture
//
//   - pkg/server: HTTP server, middleware and routing
//   - pkg/server/endpoints: REST handlers
//   - pkg/server/store: storage interfaces, with gorm implementations in
//     pkg/server/store/gorm
//   - pkg/auth: access, refresh and single purpose tokens, provider token exchange
//   - pkg/permission: who may do what to which resource
//   - pkg/collaboration: membership lists shared by groups, landscapes,
//     projects and story maps
//   - pkg/soil, pkg/soilid: soil observations and the soil id service
//   - pkg/export: CSV and JSON site exports
//   - pkg/gis: boundary parsing and area
//   - pkg/notifications: email and websocket notifications
//   - pkg/storage: S3 backed file uploads
//   - pkg/audit: audit events
//   - pkg/config, pkg/logging, pkg/metrics, pkg/validation
//
// # Quick Start
//
//	# Apply migrations
//	terrasoctl db migrate
//
//	# Start the server
//	terrasoctl server --port 8000
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - AUDIT_DATABASE_URL: optional database for persisted audit events
//   - TERRASO_CONFIG_PATH: directory holding terraso.yml
//   - TERRASO_JWT_SECRET: HMAC secret for signing tokens
//   - TERRASO_LOG_LEVEL: trace, debug, info, warn or error
//   - PORT: server port (default: 8000)
package main
