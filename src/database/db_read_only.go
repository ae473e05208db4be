package database

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ReadOnlyDB serves the operator API's search endpoints so heavy decision
// queries never contend with the write path. The database user for this
// connection should have SELECT-only permissions.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations.
func InitReadOnlyDB() error {
	config := GetConfig()
	db, err := gorm.Open(openDialector(config.DatabaseURLReadOnly),
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	if !strings.HasPrefix(config.DatabaseURLReadOnly, "sqlite://") {
		var dbName, schema string
		if err := db.
			Raw("SELECT current_database(), current_schema()").
			Row().
			Scan(&dbName, &schema); err != nil {
			return fmt.Errorf("failed to query current db/schema on ReadOnlyDB: %w", err)
		}

		logrus.WithFields(map[string]interface{}{"dbName": dbName, "schema": schema}).
			Info("[ReadOnlyDB] connected")
	}

	ReadOnlyDB = db

	return nil
}
