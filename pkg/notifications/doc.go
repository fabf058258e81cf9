// Package notifications sends email notifications and pushes live updates
// to connected clients over websockets.
package notifications
