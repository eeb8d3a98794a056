// Package migrations embeds the development schema so the server binary can
// bootstrap a local database without a checkout of the repository.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
