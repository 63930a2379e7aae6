// Package migrations embeds the SQL schema migrations so the migrate
// command can run them without shipping files alongside the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
