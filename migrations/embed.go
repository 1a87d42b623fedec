// Package migrations embeds the SQL schema so the server and integration
// tests can apply it with goose without a filesystem path at runtime.
package migrations

import "embed"

// FS holds all *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
