// Package migrations holds the PostgreSQL schema migrations, applied with
// golang-migrate either from disk (cmd/migrate) or from this embedded copy.
package migrations

import "embed"

// FS contains every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
