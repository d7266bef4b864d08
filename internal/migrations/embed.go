// Package migrations embeds the goose SQL migrations for the subsystem's
// tables: member records, photo pointers, rate-limit counters and
// one-time markers.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
