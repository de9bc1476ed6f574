package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// LatestVersion is passed to Migrate to apply every known migration
const LatestVersion = -1

// Migrator moves the schema between versions of goose SQL migrations.
// Files are named <version>_<description>.sql and carry
// "-- +goose Up" / "-- +goose Down" sections. Applied versions are kept in
// goose_db_version.
type Migrator struct {
	provider *goose.Provider
}

// NewMigrator creates a Migrator for the migrations at the root of migrationFS
func NewMigrator(db *sql.DB, migrationFS fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("migrator needs a database")
	}
	provider, err := goose.NewProvider(database.DialectSQLite3, db, migrationFS)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Version returns the highest applied version, or 0 if none are applied
func (m *Migrator) Version(ctx context.Context) (int, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version), nil
}

// Migrate moves the schema to target, applying pending migrations in order or
// rolling back applied ones in reverse order. LatestVersion targets the newest migration.
func (m *Migrator) Migrate(ctx context.Context, target int) error {
	if target < 0 {
		if _, err := m.provider.Up(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	switch {
	case current < target:
		if _, err := m.provider.UpTo(ctx, int64(target)); err != nil {
			return fmt.Errorf("apply migrations to %d: %w", target, err)
		}
	case current > target:
		if _, err := m.provider.DownTo(ctx, int64(target)); err != nil {
			return fmt.Errorf("roll back migrations to %d: %w", target, err)
		}
	}
	return nil
}
