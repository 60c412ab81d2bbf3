// Package migrations embeds the goose SQL migrations so the binary can
// bootstrap a database without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
