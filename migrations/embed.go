// Package migrations embeds the PostgreSQL schema migrations so binaries can
// migrate without a migrations directory on disk.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql pairs
//
//go:embed *.sql
var FS embed.FS
