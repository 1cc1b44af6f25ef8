// Package migrations embeds the failure ledger schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
