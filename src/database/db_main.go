package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradeorchestrator/src/model"
)

// openDialector picks the driver from the URL scheme. sqlite:// URLs are for
// local and simulation runs; everything else is postgres.
func openDialector(url string) gorm.Dialector {
	if strings.HasPrefix(url, "sqlite://") {
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://"))
	}
	return postgres.Open(url)
}

// MainDB is the primary read/write database connection used by the application.
var MainDB *gorm.DB

// InitMainDB initializes the main (read/write) database connection and runs
// migrations. Called once at application startup.
func InitMainDB() error {
	config := GetConfig()
	db, err := gorm.Open(openDialector(config.DatabaseURLMain),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to get DB from GORM")
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	// Assign to the global variable only after a successful connection.
	MainDB = db

	logrus.Info("[database] MainDB connection established")

	// Run AutoMigrate only on the main database.
	// Add here all models that belong to the write-side schema.
	if err := MainDB.AutoMigrate(
		&model.Portfolio{},
		&model.Order{},
		&model.OrderLog{},
		&model.Decision{},
		&model.HeldIntent{},
		&model.CircuitBreakerState{},
		&model.InstrumentCacheEntry{},
		&model.Exception{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}

	logrus.Info("[database] MainDB migrations completed")

	return nil
}
