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

// DecisionRepository handles the append-only decision audit log. Rows are
// created, never updated or deleted; a correction is a new row referencing
// the superseded one.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository instance using the main read/write database.
func NewDecisionRepository() *DecisionRepository {
	return &DecisionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *DecisionRepository) WithDB(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Create appends one decision row.
func (r *DecisionRepository) Create(ctx context.Context, decision *model.Decision) error {
	logger.WithFields(map[string]interface{}{
		"repo":           "DecisionRepository",
		"op":             "Create",
		"decision_type":  decision.DecisionType,
		"symbol":         decision.Symbol,
		"outcome":        decision.Outcome,
		"correlation_id": decision.CorrelationID,
	}).Debug("Appending decision audit row")

	err := r.db.WithContext(ctx).Create(decision).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":          "DecisionRepository",
			"op":            "Create",
			"decision_type": decision.DecisionType,
		}).WithError(err).Error("Failed to append decision")

		return err
	}
	return nil
}

// Supersede appends a corrected decision referencing the original row.
// The original is left untouched.
func (r *DecisionRepository) Supersede(ctx context.Context, originalID uint, corrected *model.Decision) error {
	original, err := r.FindByID(ctx, originalID)
	if err != nil {
		return err
	}
	if original == nil {
		return errors.New("decision to supersede not found")
	}

	corrected.SupersedesID = &original.ID
	corrected.PortfolioID = original.PortfolioID
	corrected.CorrelationID = original.CorrelationID

	logger.WithFields(map[string]interface{}{
		"repo":       "DecisionRepository",
		"op":         "Supersede",
		"supersedes": originalID,
	}).Info("Appending superseding decision")

	return r.db.WithContext(ctx).Create(corrected).Error
}

// FindByID fetches a single decision by its primary ID.
// Returns (nil, nil) if not found.
func (r *DecisionRepository) FindByID(ctx context.Context, id uint) (*model.Decision, error) {
	var decision model.Decision

	err := r.db.WithContext(ctx).First(&decision, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "DecisionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch decision by ID")

		return nil, err
	}
	return &decision, nil
}

// SearchFilter narrows Search. Zero values mean "no filter".
type SearchFilter struct {
	PortfolioID   uint
	Symbol        string
	DecisionType  string
	Outcome       string
	CorrelationID string
	From          time.Time
	To            time.Time
	Limit         int
}

// Search returns decisions matching the filter, newest first.
func (r *DecisionRepository) Search(ctx context.Context, filter SearchFilter) ([]model.Decision, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	q := r.db.WithContext(ctx).Model(&model.Decision{})
	if filter.PortfolioID != 0 {
		q = q.Where("portfolio_id = ?", filter.PortfolioID)
	}
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.DecisionType != "" {
		q = q.Where("decision_type = ?", filter.DecisionType)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", filter.Outcome)
	}
	if filter.CorrelationID != "" {
		q = q.Where("correlation_id = ?", filter.CorrelationID)
	}
	if !filter.From.IsZero() {
		q = q.Where("decided_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("decided_at <= ?", filter.To)
	}

	var decisions []model.Decision
	err := q.Order("decided_at DESC").Limit(filter.Limit).Find(&decisions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "DecisionRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search decisions")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "DecisionRepository",
		"op":          "Search",
		"rows_return": len(decisions),
	}).Debug("Decision search completed")

	return decisions, nil
}

// FindByCorrelation returns every decision of one cycle, oldest first, so
// the full chain replays in order.
func (r *DecisionRepository) FindByCorrelation(ctx context.Context, correlationID string) ([]model.Decision, error) {
	var decisions []model.Decision

	err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("id ASC").
		Find(&decisions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":           "DecisionRepository",
			"op":             "FindByCorrelation",
			"correlation_id": correlationID,
		}).WithError(err).Error("Failed to fetch decisions by correlation")

		return nil, err
	}
	return decisions, nil
}
