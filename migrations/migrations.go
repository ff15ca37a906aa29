// Package migrations runs the embedded schema migrations of the auth and app
// databases using golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migration sets
const (
	SetAuth = "auth"
	SetApp  = "app"
)

//go:embed auth/*.sql app/*.sql
var files embed.FS

// ErrNoChange is returned by golang-migrate when the schema is already at the target version
var ErrNoChange = migrate.ErrNoChange

// Sets lists the known migration sets
func Sets() []string {
	return []string{SetAuth, SetApp}
}

// Source returns the migration files of a set
func Source(set string) (fs.FS, error) {
	if set != SetAuth && set != SetApp {
		return nil, fmt.Errorf("migration set must be %s or %s, got %q", SetAuth, SetApp, set)
	}
	return fs.Sub(files, set)
}

// Run applies the migrations of set in direction ("up" or "down").
// Each set keeps its own version table so both can share one database.
func Run(dsn, set, direction string) error {
	if strings.TrimSpace(dsn) == "" {
		return errors.New("database DSN is not set; set DATABASE_URL or DB_HOST")
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	source, err := Source(set)
	if err != nil {
		return err
	}

	target, err := withMigrationsTable(dsn, set)
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, target)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s %s: %w", set, direction, err)
	}
	return nil
}

// withMigrationsTable points golang-migrate at a per-set version table
func withMigrationsTable(dsn, set string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid database DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("database DSN must be a postgres URL, got scheme %q", u.Scheme)
	}
	q := u.Query()
	if q.Get("x-migrations-table") == "" {
		q.Set("x-migrations-table", "schema_migrations_"+set)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
