// Package migrations embeds the goose migration files for PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
