package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"arcade/internal/middleware"

	"gorm.io/gorm"
)

// migrationRecord is one row of migration_logs.
type migrationRecord struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (migrationRecord) TableName() string {
	return "migration_logs"
}

func (r migrationRecord) label() string {
	return Migration{Version: r.Version, Name: r.Name}.String()
}

// appliedMigrations lists migration_logs in version order. A database that
// was never migrated has no log table and reports nothing applied.
func appliedMigrations(ctx context.Context, db *gorm.DB) ([]migrationRecord, error) {
	var records []migrationRecord
	if !db.WithContext(ctx).Migrator().HasTable(&migrationRecord{}) {
		return records, nil
	}
	if err := db.WithContext(ctx).Order("version ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return records, nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, migrations)
}

func runMigrations(ctx context.Context, db *gorm.DB, set []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&migrationRecord{}); err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, set); err != nil {
		return err
	}

	done := make(map[int]bool, len(applied))
	for _, r := range applied {
		done[r.Version] = true
	}

	for _, m := range set {
		if done[m.Version] {
			continue
		}
		middleware.Logger.Info("Applying migration", slog.String("migration", m.String()))
		// Script and log row commit together.
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&migrationRecord{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m, err)
		}
	}
	return nil
}

// validateAppliedVersions fails when the log holds migrations this build does
// not ship, which means the binary is older than the schema.
func validateAppliedVersions(applied []migrationRecord, registered []Migration) error {
	var unknown []string
	for _, r := range applied {
		if _, ok := findMigration(registered, r.Version); !ok {
			unknown = append(unknown, r.label())
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("database has migrations this build does not ship: %s", strings.Join(unknown, ", "))
}

// RollbackMigration runs the down script of an applied migration and removes
// its log row.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return rollbackMigration(ctx, db, migrations, version)
}

func rollbackMigration(ctx context.Context, db *gorm.DB, set []Migration, version int) error {
	m, ok := findMigration(set, version)
	if !ok {
		return fmt.Errorf("migration %06d is not part of this build", version)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(applied, func(r migrationRecord) bool { return r.Version == version }) {
		return fmt.Errorf("migration %s has not been applied", m)
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", m.String()))
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return err
		}
		return tx.Delete(&migrationRecord{}, "version = ?", version).Error
	})
	if err != nil {
		return fmt.Errorf("roll back migration %s: %w", m, err)
	}
	return nil
}
