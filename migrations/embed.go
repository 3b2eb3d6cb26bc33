// Package migrations embeds the built-in SQL migrations into the binary.
//
// Each directory is one migration domain and each file one step, so the
// schema can be brought up to date without SQL files on the filesystem.
package migrations

import (
	"embed"
	"fmt"

	"github.com/nerrad567/sqlez/internal/infrastructure/database"
)

// FS holds the built-in migration domains.
//
//go:embed kv/*.sql
var FS embed.FS

// Load returns the built-in migrations, one per domain.
func Load() ([]*database.Migration, error) {
	return database.LoadMigrations(FS, ".")
}

// Domain returns the built-in migration for one domain.
func Domain(name string) (*database.Migration, error) {
	ms, err := Load()
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		if m.Domain() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no built-in migration for domain %q", name)
}
