package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"payment-bot/internal/domain/billing"
)

// Open connects to the relational store selected by driver ("postgres" or
// "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the payments table and its indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&billing.Payment{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	logrus.WithField("dialect", db.Dialector.Name()).Info("database migrated")
	return nil
}
