// Package bootstrap opens the configured backends for the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"campusflow/internal/config"
	"campusflow/internal/database"
	"campusflow/internal/database/sqlite"
)

// OpenStore connects the configured storage backend. PostgreSQL schemas are
// migrated first when auto-migration is enabled; SQLite always migrates on
// open.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (database.Store, error) {
	switch cfg.Driver {
	case config.DatabaseDriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Using SQLite store", "path", cfg.SQLitePath)
		return store, nil

	case config.DatabaseDriverPostgres:
		if cfg.AutoMigrate {
			if err := database.Migrate(cfg.URL()); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}

		db := database.NewDatabase()
		if err := db.Connect(ctx, cfg.URL(), cfg.MaxConns); err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("database: ping failed: %w", err)
		}
		logger.Info("Using PostgreSQL store", "host", cfg.Host, "database", cfg.Name)
		return &db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
