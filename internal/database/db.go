package database

import (
	"fmt"

	"workshop/internal/logger"
	"workshop/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM and migrates the ledger tables
func NewConnection(dsn string, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	err = db.AutoMigrate(
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.InvoicePayment{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Warnw("failed to auto-migrate models", "error", err)
	}

	return db, nil
}
