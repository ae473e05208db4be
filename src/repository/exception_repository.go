package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/model"
)

// ExceptionRepository handles persistence of operational exceptions.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a new repository instance.
func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(ctx context.Context, exc *model.Exception) error {
	logger.WithFields(map[string]interface{}{
		"component": exc.Component,
		"operation": exc.Operation,
		"severity":  exc.Severity,
	}).Error("Persisting operational exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// FindLatest returns the latest exceptions newest first.
func (r *ExceptionRepository) FindLatest(ctx context.Context, limit int) ([]model.Exception, error) {
	if limit <= 0 {
		limit = 50
	}

	var exceptions []model.Exception
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&exceptions).Error
	if err != nil {
		logger.WithError(err).Error("Failed to fetch latest exceptions")
		return nil, err
	}
	return exceptions, nil
}
