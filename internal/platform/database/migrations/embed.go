// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

// Migrations holds the SQL migration files.
//
//go:embed *.sql
var Migrations embed.FS
