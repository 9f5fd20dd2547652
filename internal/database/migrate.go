// Package database runs the schema migrations for the optional Timescale
// mirror's two tables, historical_bars and trade_journal, via
// golang-migrate, logging through the same zerolog conventions the rest of
// the process uses.
package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

// MigrationConfig points RunMigrations/GetMigrationVersion at a migrations
// directory and names the target database for golang-migrate's lock table.
type MigrationConfig struct {
	MigrationsPath string
	DatabaseName   string
}

func newMigrator(db *sql.DB, config MigrationConfig) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: config.DatabaseName})
	if err != nil {
		return nil, fmt.Errorf("database: create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+config.MigrationsPath, config.DatabaseName, driver)
	if err != nil {
		return nil, fmt.Errorf("database: create migration instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending migration under config.MigrationsPath
// and logs the resulting schema version.
func RunMigrations(db *sql.DB, config MigrationConfig, logger zerolog.Logger) error {
	m, err := newMigrator(db, config)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Msg("database: no pending migrations")
		} else {
			return fmt.Errorf("database: run migrations: %w", err)
		}
	}

	version, dirty, err := GetMigrationVersion(db, config)
	if err != nil {
		return err
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("database: migrations applied")
	return nil
}

// GetMigrationVersion returns the schema's current migration version and
// dirty flag. If no migration has ever been applied it returns version 0,
// dirty false and a nil error.
func GetMigrationVersion(db *sql.DB, config MigrationConfig) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, config)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("database: get migration version: %w", err)
	}
	return version, dirty, nil
}
