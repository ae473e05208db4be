package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/model"
)

// BreakerRepository persists circuit breaker state so a restart cannot
// silently re-arm a tripped breaker.
type BreakerRepository struct {
	db *gorm.DB
}

// NewBreakerRepository creates a new repository instance using the main read/write database.
func NewBreakerRepository() *BreakerRepository {
	return &BreakerRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *BreakerRepository) WithDB(db *gorm.DB) *BreakerRepository {
	return &BreakerRepository{db: db}
}

// GetByPortfolio fetches the persisted breaker state for one portfolio.
// Returns (nil, nil) if none exists yet.
func (r *BreakerRepository) GetByPortfolio(ctx context.Context, portfolioID uint) (*model.CircuitBreakerState, error) {
	var state model.CircuitBreakerState

	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":         "BreakerRepository",
			"op":           "GetByPortfolio",
			"portfolio_id": portfolioID,
		}).WithError(err).Error("Failed to fetch breaker state")

		return nil, err
	}
	return &state, nil
}

// Upsert writes the breaker snapshot on its portfolio key.
func (r *BreakerRepository) Upsert(ctx context.Context, state *model.CircuitBreakerState) error {
	logger.WithFields(map[string]interface{}{
		"repo":         "BreakerRepository",
		"op":           "Upsert",
		"portfolio_id": state.PortfolioID,
		"level":        state.Level,
		"drawdown":     state.DrawdownPct.String(),
	}).Debug("Persisting breaker state")

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "portfolio_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"level", "drawdown_pct", "peak_value", "consecutive_losses",
				"last_transition", "last_transition_why", "updated_at",
			}),
		}).
		Create(state).Error
}
