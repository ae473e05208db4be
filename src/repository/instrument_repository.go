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

// InstrumentRepository is the persisted layer of the instrument cache.
// It satisfies instruments.Store.
type InstrumentRepository struct {
	db *gorm.DB
}

// NewInstrumentRepository creates a new repository instance using the main read/write database.
func NewInstrumentRepository() *InstrumentRepository {
	return &InstrumentRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *InstrumentRepository) WithDB(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// FindBySymbol fetches the cached mapping for one broker/symbol pair.
// Returns (nil, nil) if not found.
func (r *InstrumentRepository) FindBySymbol(ctx context.Context, brokerName, symbol string) (*model.InstrumentCacheEntry, error) {
	var entry model.InstrumentCacheEntry

	err := r.db.WithContext(ctx).
		Where("broker = ? AND symbol = ?", brokerName, symbol).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":   "InstrumentRepository",
			"op":     "FindBySymbol",
			"broker": brokerName,
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch instrument cache entry")

		return nil, err
	}
	return &entry, nil
}

// Upsert inserts or refreshes a cache entry on its broker/symbol key.
func (r *InstrumentRepository) Upsert(ctx context.Context, entry *model.InstrumentCacheEntry) error {
	logger.WithFields(map[string]interface{}{
		"repo":      "InstrumentRepository",
		"op":        "Upsert",
		"broker":    entry.Broker,
		"symbol":    entry.Symbol,
		"broker_id": entry.BrokerID,
	}).Debug("Upserting instrument cache entry")

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "broker"}, {Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"asset_class", "broker_id", "resolved_at", "ttl_seconds", "updated_at",
			}),
		}).
		Create(entry).Error
}
