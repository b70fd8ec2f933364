package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"storefront/pkg/config"
)

// Migrate applies every pending up migration found at migrationsPath
// (e.g. "file://migrations"). Uses DIRECT_URL when set.
func Migrate(migrationsPath string, cfg config.Config) error {
	return withMigrator(migrationsPath, cfg, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// Rollback reverts the last steps migrations.
func Rollback(migrationsPath string, cfg config.Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("rollback: steps must be positive, got %d", steps)
	}
	return withMigrator(migrationsPath, cfg, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

// Version reports the applied schema version. ok is false on an empty database.
func Version(migrationsPath string, cfg config.Config) (version uint, dirty, ok bool, err error) {
	err = withMigrator(migrationsPath, cfg, func(m *migrate.Migrate) error {
		v, d, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		if verr != nil {
			return verr
		}
		version, dirty, ok = v, d, true
		return nil
	})
	return version, dirty, ok, err
}

func withMigrator(migrationsPath string, cfg config.Config, fn func(m *migrate.Migrate) error) error {
	m, err := migrate.New(migrationsPath, migrationConnString(cfg))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
