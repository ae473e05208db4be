package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/model"
)

// PortfolioRepository handles persistence for portfolios. Mode is set once at
// creation; no method here writes it back, so paper state can never bleed
// into live.
type PortfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository creates a new repository instance using the main read/write database.
func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PortfolioRepository) WithDB(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// Create inserts a new portfolio.
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *model.Portfolio) error {
	logger.WithFields(map[string]interface{}{
		"repo": "PortfolioRepository",
		"op":   "Create",
		"name": portfolio.Name,
		"mode": portfolio.Mode,
	}).Info("Creating portfolio")

	return r.db.WithContext(ctx).Create(portfolio).Error
}

// FindByName fetches a portfolio by its unique name.
// Returns (nil, nil) if not found.
func (r *PortfolioRepository) FindByName(ctx context.Context, name string) (*model.Portfolio, error) {
	var portfolio model.Portfolio

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "PortfolioRepository",
			"op":   "FindByName",
			"name": name,
		}).WithError(err).Error("Failed to fetch portfolio by name")

		return nil, err
	}
	return &portfolio, nil
}

// FindByID fetches a portfolio by primary ID.
// Returns (nil, nil) if not found.
func (r *PortfolioRepository) FindByID(ctx context.Context, id uint) (*model.Portfolio, error) {
	var portfolio model.Portfolio

	err := r.db.WithContext(ctx).First(&portfolio, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &portfolio, nil
}

// Pause marks a portfolio paused. The scheduler checks this before every
// cycle; in-flight cycles are not interrupted.
func (r *PortfolioRepository) Pause(ctx context.Context, id uint, pausedBy string) error {
	logger.WithFields(map[string]interface{}{
		"repo":      "PortfolioRepository",
		"op":        "Pause",
		"id":        id,
		"paused_by": pausedBy,
	}).Warn("Pausing portfolio")

	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Portfolio{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    model.PortfolioStatusPaused,
			"paused_at": &now,
			"paused_by": pausedBy,
		}).Error
}

// Resume reactivates a paused portfolio.
func (r *PortfolioRepository) Resume(ctx context.Context, id uint) error {
	logger.WithFields(map[string]interface{}{
		"repo": "PortfolioRepository",
		"op":   "Resume",
		"id":   id,
	}).Warn("Resuming portfolio")

	return r.db.WithContext(ctx).Model(&model.Portfolio{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    model.PortfolioStatusActive,
			"paused_at": nil,
			"paused_by": "",
		}).Error
}
