// Package migrations embeds the SQL schema of the solve history store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
