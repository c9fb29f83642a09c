package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedMigrations embed.FS

// Migrate applies all pending schema migrations for the given driver
// ("pgx" or "sqlite3"). Each driver has its own embedded migration set so
// dialect differences stay out of application SQL.
func Migrate(db *sql.DB, driver string) error {
	goose.SetBaseFS(embedMigrations)

	var dialect, dir string
	switch driver {
	case "pgx":
		dialect, dir = "pgx", "postgres"
	case "sqlite3":
		dialect, dir = "sqlite3", "sqlite"
	default:
		return fmt.Errorf("migration error: unsupported driver %q", driver)
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
