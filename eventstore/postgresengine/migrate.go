package postgresengine

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	migrationsSourceName = "iofs"
	migrationsPostgres   = "migrations/postgres"
	migrationsSQLite     = "migrations/sqlite"
)

// ErrNilMigrationDB is returned when a migration is requested without a database.
var ErrNilMigrationDB = errors.New("migration database must not be nil")

// MigratePostgres applies all pending migrations of the events table to a PostgreSQL database.
// It borrows one connection from db and leaves db open.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return ErrNilMigrationDB
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	m, _, err := newMigrate(migrationsPostgres, dialectPostgres, driver)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer m.Close() // closes the borrowed connection and the source

	return up(m)
}

// MigrateSQLite applies all pending migrations of the events table to a SQLite database
// opened with the modernc.org/sqlite driver. db stays open.
func MigrateSQLite(db *sql.DB) error {
	if db == nil {
		return ErrNilMigrationDB
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, src, err := newMigrate(migrationsSQLite, dialectSQLite, driver)
	if err != nil {
		return err
	}

	// m.Close would close db through the sqlite driver, so only the source is closed.
	defer src.Close()

	return up(m)
}

func newMigrate(path string, databaseName string, driver database.Driver) (*migrate.Migrate, source.Driver, error) {
	src, err := iofs.New(migrationsFS, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migrations %s: %w", path, err)
	}

	m, err := migrate.NewWithInstance(migrationsSourceName, src, databaseName, driver)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, src, nil
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
