package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/model"
)

// OrderRepository handles persistence for orders and their status transition
// logs. Status changes always go through the AutoLog methods so every
// transition leaves an order_logs row.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithAutoLog inserts a new order and its initial status log in one
// transaction.
func (r *OrderRepository) CreateWithAutoLog(ctx context.Context, order *model.Order) error {
	logger.WithFields(map[string]interface{}{
		"repo":            "OrderRepository",
		"op":              "CreateWithAutoLog",
		"client_order_id": order.ClientOrderID,
		"symbol":          order.Symbol,
		"side":            order.Side,
	}).Debug("Creating order with initial log")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			logger.WithFields(map[string]interface{}{
				"repo":            "OrderRepository",
				"op":              "CreateWithAutoLog",
				"client_order_id": order.ClientOrderID,
			}).WithError(err).Error("Failed to create order")

			return err
		}

		log := model.OrderLog{
			OrderID:   order.ID,
			OldStatus: "",
			NewStatus: order.Status,
			Reason:    "order created",
		}
		return tx.Create(&log).Error
	})
}

// MarkSubmitted records the broker's order id and status after a successful
// submission.
func (r *OrderRepository) MarkSubmitted(ctx context.Context, orderID uint, brokerOrderID, status string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"broker_order_id": brokerOrderID,
			"status":          status,
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
			return err
		}

		log := model.OrderLog{
			OrderID:   orderID,
			OldStatus: order.Status,
			NewStatus: status,
			Reason:    "submitted to broker",
		}
		return tx.Create(&log).Error
	})
}

// UpdateStatusWithAutoLog transitions an order's status and appends the
// transition log atomically.
func (r *OrderRepository) UpdateStatusWithAutoLog(ctx context.Context, orderID uint, status, reason string) error {
	logger.WithFields(map[string]interface{}{
		"repo":       "OrderRepository",
		"op":         "UpdateStatusWithAutoLog",
		"order_id":   orderID,
		"new_status": status,
	}).Debug("Updating order status")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Status == status {
			return nil
		}

		if err := tx.Model(&model.Order{}).Where("id = ?", orderID).
			Update("status", status).Error; err != nil {
			return err
		}

		log := model.OrderLog{
			OrderID:   orderID,
			OldStatus: order.Status,
			NewStatus: status,
			Reason:    reason,
		}
		return tx.Create(&log).Error
	})
}

// FindByClientOrderID fetches an order by our idempotency key.
// Returns (nil, nil) if not found.
func (r *OrderRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "FindByClientOrderID",
			"client_order_id": clientOrderID,
		}).WithError(err).Error("Failed to fetch order by client order id")

		return nil, err
	}
	return &order, nil
}

// FindOpenByPortfolio returns orders not yet in a terminal status.
func (r *OrderRepository) FindOpenByPortfolio(ctx context.Context, portfolioID uint) ([]model.Order, error) {
	var orders []model.Order

	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND status NOT IN ?", portfolioID, []string{
			model.OrderStatusFilled,
			model.OrderStatusCancelled,
			model.OrderStatusRejected,
			model.OrderStatusFailed,
		}).
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "OrderRepository",
			"op":           "FindOpenByPortfolio",
			"portfolio_id": portfolioID,
		}).WithError(err).Error("Failed to fetch open orders")

		return nil, err
	}
	return orders, nil
}

// FindLatestByPortfolio returns the latest orders newest first.
func (r *OrderRepository) FindLatestByPortfolio(ctx context.Context, portfolioID uint, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 20
	}

	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "OrderRepository",
			"op":           "FindLatestByPortfolio",
			"portfolio_id": portfolioID,
		}).WithError(err).Error("Failed to fetch latest orders")

		return nil, err
	}
	return orders, nil
}
