// Package db carries the SQL migrations so release builds can embed them.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
