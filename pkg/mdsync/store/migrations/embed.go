// Copyright 2026 UF Open Source Club

package migrations

import "embed"

// FS contains the embedded SQLite migrations for the bridge registry.
//
//go:embed *.sql
var FS embed.FS
