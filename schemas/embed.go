// Package schemas embeds the SQL files applied to the SQLite store at startup.
package schemas

import "embed"

// Migrations holds the ordered SQL migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
