// Package migrations embeds the schema for every store backend and applies it
// with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// UpPostgres applies pending migrations to the database behind dsn.
func UpPostgres(dsn string) error {
	url, err := pgxURL(dsn)
	if err != nil {
		return err
	}
	src, err := iofs.New(postgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("migrations: open source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("migrations: init postgres: %w", err)
	}
	defer m.Close()
	return up(m)
}

// UpSQLite applies pending migrations on an open SQLite handle. The handle
// stays open; the caller owns it.
func UpSQLite(db *sql.DB) error {
	src, err := iofs.New(sqliteFS, "sqlite")
	if err != nil {
		return fmt.Errorf("migrations: open source: %w", err)
	}
	defer src.Close()
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrations: init sqlite: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrations: init sqlite: %w", err)
	}
	return up(m)
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// pgxURL rewrites a postgres:// DSN into the pgx5:// scheme the migrate
// driver registers.
func pgxURL(dsn string) (string, error) {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix), nil
		}
	}
	if strings.HasPrefix(dsn, "pgx5://") {
		return dsn, nil
	}
	return "", fmt.Errorf("migrations: unsupported postgres dsn, expected a postgres:// url")
}
