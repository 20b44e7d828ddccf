package database

import (
	"context"
	"fmt"
	"log/slog"

	"arcade/internal/config"
	"arcade/internal/middleware"

	"gorm.io/gorm"
)

// SchemaStatus describes how the schema is managed for the configured driver
// and, for SQL migrations, which versions are applied or pending.
type SchemaStatus struct {
	Driver            string
	Environment       string
	WillRunSQL        bool
	Applied           []string
	PendingMigrations []Migration
}

// usesSQLMigrations reports whether the driver's schema is owned by the
// embedded SQL migrations. SQLite databases are built with AutoMigrate.
func usesSQLMigrations(cfg *config.Config) bool {
	return cfg.DBDriver == config.DriverPostgres
}

// ApplySchema brings db up to date: pending SQL migrations on PostgreSQL,
// AutoMigrate of PersistentModels on SQLite.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if usesSQLMigrations(cfg) {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
		return nil
	}

	middleware.Logger.Info("Running GORM AutoMigrate", slog.String("driver", cfg.DBDriver), slog.String("env", cfg.Env))
	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// AutoMigrate creates or updates every persistent model's table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// GetSchemaStatus reports the schema state without changing it.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	status := &SchemaStatus{
		Driver:      cfg.DBDriver,
		Environment: cfg.Env,
		WillRunSQL:  usesSQLMigrations(cfg),
	}
	if !status.WillRunSQL {
		return status, nil
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, r := range applied {
		status.Applied = append(status.Applied, r.label())
		done[r.Version] = true
	}
	for _, m := range migrations {
		if !done[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
