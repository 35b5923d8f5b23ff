// internal/database/migrations.go
package database

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/config"
	"github.com/javajoker/rfp-backend/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies the versioned SQL migrations on postgres and falls
// back to AutoMigrate on sqlite.
func RunMigrations(db *gorm.DB, cfg config.DatabaseConfig) error {
	logrus.Info("Running database migrations...")

	if cfg.IsSQLite() {
		if err := AutoMigrate(db); err != nil {
			return err
		}
		logrus.Info("Database migrations completed (auto-migrate)")
		return nil
	}

	sqlDB, err := sql.Open("postgres", cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := gooseUp(sqlDB); err != nil {
		return err
	}

	logrus.Info("Database migrations completed")
	return nil
}

func gooseUp(sqlDB *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(logrus.StandardLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationStatus prints the applied/pending state of each migration.
func MigrationStatus(cfg config.DatabaseConfig) error {
	if cfg.IsSQLite() {
		logrus.Info("sqlite databases are auto-migrated; no versioned migrations to report")
		return nil
	}

	sqlDB, err := sql.Open("postgres", cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return goose.Status(sqlDB, "migrations")
}

func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.RFP{},
		&models.Vendor{},
		&models.RFPVendor{},
		&models.Proposal{},
		&models.EmailLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)
	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_rfps_created_at ON rfps(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_email_logs_created_at_desc ON email_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_proposals_completeness ON proposals(rfp_id, completeness_score DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
		}
	}
}
