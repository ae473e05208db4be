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

// HeldIntentRepository persists intents parked for operator approval.
type HeldIntentRepository struct {
	db *gorm.DB
}

// NewHeldIntentRepository creates a new repository instance using the main read/write database.
func NewHeldIntentRepository() *HeldIntentRepository {
	return &HeldIntentRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *HeldIntentRepository) WithDB(db *gorm.DB) *HeldIntentRepository {
	return &HeldIntentRepository{db: db}
}

// Create parks one intent.
func (r *HeldIntentRepository) Create(ctx context.Context, held *model.HeldIntent) error {
	logger.WithFields(map[string]interface{}{
		"repo":      "HeldIntentRepository",
		"op":        "Create",
		"intent_id": held.IntentID,
		"symbol":    held.Symbol,
		"notional":  held.Notional.String(),
	}).Info("Parking intent for operator approval")

	return r.db.WithContext(ctx).Create(held).Error
}

// FindByIntentID fetches a held intent by its intent id.
// Returns (nil, nil) if not found.
func (r *HeldIntentRepository) FindByIntentID(ctx context.Context, intentID string) (*model.HeldIntent, error) {
	var held model.HeldIntent

	err := r.db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		First(&held).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":      "HeldIntentRepository",
			"op":        "FindByIntentID",
			"intent_id": intentID,
		}).WithError(err).Error("Failed to fetch held intent")

		return nil, err
	}
	return &held, nil
}

// FindPendingByPortfolio returns pending held intents oldest first.
func (r *HeldIntentRepository) FindPendingByPortfolio(ctx context.Context, portfolioID uint) ([]model.HeldIntent, error) {
	var held []model.HeldIntent

	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND status = ?", portfolioID, model.HeldIntentStatusPending).
		Order("id ASC").
		Find(&held).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "HeldIntentRepository",
			"op":           "FindPendingByPortfolio",
			"portfolio_id": portfolioID,
		}).WithError(err).Error("Failed to fetch pending held intents")

		return nil, err
	}
	return held, nil
}

// Decide records the operator's ruling on a pending intent. Only pending
// intents can be decided; anything else is a conflict.
func (r *HeldIntentRepository) Decide(ctx context.Context, intentID, status, decidedBy string) error {
	if status != model.HeldIntentStatusApproved && status != model.HeldIntentStatusDenied {
		return errors.New("held intent decision must be approved or denied")
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "HeldIntentRepository",
		"op":         "Decide",
		"intent_id":  intentID,
		"status":     status,
		"decided_by": decidedBy,
	}).Info("Recording held intent decision")

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.HeldIntent{}).
		Where("intent_id = ? AND status = ?", intentID, model.HeldIntentStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("held intent not found or already decided")
	}
	return nil
}

// ExpireOlderThan marks stale pending intents expired so they can never
// execute against a market that has moved on.
func (r *HeldIntentRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.HeldIntent{}).
		Where("status = ? AND created_at < ?", model.HeldIntentStatusPending, cutoff).
		Update("status", model.HeldIntentStatusExpired)
	if result.Error != nil {
		logger.WithError(result.Error).Error("Failed to expire held intents")
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		logger.WithField("expired", result.RowsAffected).Warn("Expired stale held intents")
	}
	return result.RowsAffected, nil
}
