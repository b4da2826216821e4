// Package database opens the SQLite database and applies the embedded schema
// migrations at startup.
package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"warrant/internal/platform/database/migrations"
	dErrors "warrant/pkg/domain-errors"
)

// Open opens the SQLite database at path and applies pending migrations.
// Pass ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "could not open database")
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "could not enable foreign keys")
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "could not apply migrations")
	}
	return db, nil
}

// applyMigrations runs all pending up migrations from the embedded filesystem.
func applyMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}
	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
