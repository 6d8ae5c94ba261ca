// Package appfs embeds the static files shipped with the binaries.
package appfs

import "embed"

// FS holds the SQL migrations, email templates and assets.
//
//go:embed migrations templates/email/* assets
var FS embed.FS

// MigrationsDir is the directory of the goose migrations inside FS.
const MigrationsDir = "migrations"
