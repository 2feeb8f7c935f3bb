package db

import (
	"cbms_backend/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table managed by AutoMigrate, parents first
func Models() []any {
	return []any{
		&domain.User{},
		&domain.TermsAcknowledgement{},
		&domain.Payment{},
		&domain.FundRequest{},
		&domain.WalletTransaction{},
		&domain.Notification{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		logrus.WithError(err).Error("Migration failed") // Log migration failure
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
