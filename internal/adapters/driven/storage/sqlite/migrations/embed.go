// Package migrations embeds the SQL schema migrations applied by the
// SQLite metadata store on open.
package migrations

import "embed"

// FS holds the .up.sql/.down.sql migration pairs, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
