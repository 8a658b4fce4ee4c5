package database

import (
	"database/sql"
	"errors"
	"fmt"

	"campusflow/internal/database/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

// NewMigrator opens a migrate instance over the embedded migrations. The
// returned close function releases both the source and the connection.
func NewMigrator(connString string) (*migrate.Migrate, func() error, error) {
	conn, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, nil, fmt.Errorf("database: failed to open migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("database: failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("database: failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("database: failed to create migration instance: %w", err)
	}

	closeFn := func() error {
		srcErr, dbErr := m.Close()
		return errors.Join(srcErr, dbErr, conn.Close())
	}
	return m, closeFn, nil
}

// Migrate applies all pending migrations.
func Migrate(connString string) error {
	m, closeFn, err := NewMigrator(connString)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database: migration up failed: %w", err)
	}
	return nil
}
