// Package logging holds the process-wide structured logger.
//
// Every package logs through the helpers here instead of creating its own
// zerolog instance, so the level and format set by the config layer apply
// everywhere:
//
//	logging.Info().Str("project_id", id).Msg("project archived")
//
// The level can be changed at runtime with SetLevel, which the server does
// when the config file is reloaded.
package logging
