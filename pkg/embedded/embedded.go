// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains all files embedded in the Go binary:
// - Database schemas (schemas/) - applied by database.Migrate on startup
// - Seed data (seed/) - default assumption set imported on first run
//
// Schemas live here rather than next to the database code so that the binary
// is self-contained: migration never depends on the source tree being present.
//
//go:embed schemas seed
var Files embed.FS
