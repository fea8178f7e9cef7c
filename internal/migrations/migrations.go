package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var MigrationFiles embed.FS

// migrationsTable keeps the schema version away from the analytics tables.
const migrationsTable = "insights_schema_migrations"

// RunMigrations applies the embedded schema: dimension tables, the range-partitioned
// events table, the partition catalog and view refresh state.
// If autoMigrate is false, it only reports the current version.
func RunMigrations(db *sql.DB, autoMigrate bool) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	if dirty {
		if err := recoverDirty(m, version); err != nil {
			return err
		}
	}

	if !autoMigrate {
		slog.Info("[Migrations] Auto-migration disabled, leaving schema as is",
			"schema_version", version,
			"dirty", dirty,
		)
		return nil
	}

	slog.Info("[Migrations] Applying schema migrations", "schema_version", version)
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("[Migrations] Schema is up to date", "schema_version", version)
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	applied, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version after migrating: %w", err)
	}
	slog.Info("[Migrations] Schema migrated",
		"from_version", version,
		"to_version", applied,
	)
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// recoverDirty steps an interrupted migration back one version so Up reruns it.
// Every statement is IF NOT EXISTS, so a rerun is safe. -1 is golang-migrate's "no version".
func recoverDirty(m *migrate.Migrate, version uint) error {
	target := int(version) - 1
	if target <= 0 {
		target = -1
	}

	slog.Warn("[Migrations] Schema is dirty, a previous migration was interrupted",
		"schema_version", version,
		"rerun_from", target,
	)
	if err := m.Force(target); err != nil {
		return fmt.Errorf("recover dirty schema at version %d: %w", version, err)
	}
	return nil
}
