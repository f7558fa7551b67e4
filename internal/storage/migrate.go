package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema for dialect up to date.
func RunMigrations(d Dialect, dsn string) error {
	// Create a separate connection for migrations: closing the migrate
	// instance closes the database handle it was given.
	migrateDB, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var driver database.Driver
	switch d {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	case DialectPostgres:
		driver, err = postgres.WithInstance(migrateDB, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported dialect %s", d)
	}
	if err != nil {
		return fmt.Errorf("create %s driver: %w", d, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+d.String())
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.String(), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
