package store

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	sqlite3migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies every pending schema migration to the database at path
// using the embedded migration set. It is safe to call on every process
// start; golang-migrate no-ops once the schema is current.
func runMigrations(dbPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "store: loading embedded migrations")
	}

	driverConn, err := openRaw(dbPath)
	if err != nil {
		return errors.Wrap(err, "store: opening database for migration")
	}
	defer driverConn.Close()

	dbDriver, err := sqlite3migrate.WithInstance(driverConn, &sqlite3migrate.Config{})
	if err != nil {
		return errors.Wrap(err, "store: initializing sqlite3 migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", dbDriver)
	if err != nil {
		return errors.Wrap(err, "store: constructing migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "store: applying migrations")
	}
	return nil
}
