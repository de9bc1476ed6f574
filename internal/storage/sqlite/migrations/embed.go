package migrations

import "embed"

// FS contains the versioned SQLite schema migrations.
//
//go:embed *.sql
var FS embed.FS
