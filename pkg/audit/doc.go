// Package audit records who changed what.
//
// Events are written as RFC5424 syslog lines and, when AUDIT_DATABASE_URL is
// set, persisted to the audit_logs table where a Querier can read them back
// by user, resource or action.
//
// # Event Types
//
//   - CreateEvent, ChangeEvent, DeleteEvent and ReadEvent for resources
//   - AuthenticateEvent for token exchange and refresh
//
// # Usage
//
//	audit.Log(audit.ChangeEvent(user, audit.Resource{ID: site.ID, Type: "site", Name: site.Name}, nil))
//
// Logging is skipped entirely when TERRASO_AUDIT_ENABLED is false.
package audit
