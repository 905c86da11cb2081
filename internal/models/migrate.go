package models

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// MigrateAdapter runs the SQL migrations against the gorm connection.
type MigrateAdapter struct {
	db *gorm.DB
}

// NewMigrateAdapter creates a new migration adapter
func NewMigrateAdapter(db *gorm.DB) *MigrateAdapter {
	return &MigrateAdapter{db: db}
}

// RunMigrations runs the SQL migrations in the migrations directory
func (m *MigrateAdapter) RunMigrations() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("could not get sql.DB from gorm: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	migration, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := migration.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// GetMigrationVersion gets the current migration version
func (m *MigrateAdapter) GetMigrationVersion() (uint, bool, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return 0, false, err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return 0, false, err
	}

	migration, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := migration.Version()
	return version, dirty, err
}
