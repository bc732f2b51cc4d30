package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects every schema change; each file registers one, named
// after its timestamped filename.
var Migrations = migrate.NewMigrations()
