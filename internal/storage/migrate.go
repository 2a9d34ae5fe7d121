package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// optionalColumns are added after the base schema. Older databases may
// already carry some of them, so each ALTER is allowed to fail as a duplicate.
var optionalColumns = []string{
	"ALTER TABLE trips ADD COLUMN time TEXT",
	"ALTER TABLE trips ADD COLUMN passenger TEXT",
	"ALTER TABLE trips ADD COLUMN destination TEXT",
	"ALTER TABLE trips ADD COLUMN package_type TEXT",
}

func RunMigrations(dbPath string) error {
	// Create a separate connection for migrations; closing the migrate
	// instance closes the database it was given.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// EvolveSchema adds the optional trip columns. Running it any number of
// times leaves the schema unchanged after the first successful run.
func EvolveSchema(ctx context.Context, exec Executor, logger *slog.Logger) error {
	for _, ddl := range optionalColumns {
		err := exec.Execute(ctx, ddl)
		if err == nil {
			logger.InfoContext(ctx, "Schema column added", "ddl", ddl)
			continue
		}
		if isDuplicateColumn(err) {
			logger.DebugContext(ctx, "Schema column already present", "ddl", ddl)
			continue
		}
		return fmt.Errorf("evolve schema: %w", err)
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
