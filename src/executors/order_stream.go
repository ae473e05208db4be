package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/model"
)

// orderSyncStore is the slice of the order repository the streaming path
// needs. Tests inject stubs.
type orderSyncStore interface {
	FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error)
	UpdateStatusWithAutoLog(ctx context.Context, orderID uint, status, reason string) error
}

const streamReconnectDelay = 15 * time.Second

// runStream keeps the broker's order update stream alive until the context is
// cancelled, reconnecting after a fixed delay. Cycle reconciliation covers
// whatever happens while the stream is down.
func (rt *Runtime) runStream(ctx context.Context) {
	for {
		token, err := rt.tradovate.AccessToken(ctx)
		if err != nil {
			logger.WithError(err).Warn("stream token refresh failed")
		} else if err := rt.stream.Run(ctx, token); err != nil {
			logger.WithError(err).Warn("order update stream disconnected")
		}

		select {
		case <-ctx.Done():
			logger.Info("order update stream stopped")
			return
		case <-time.After(streamReconnectDelay):
		}
	}
}

// handleOrderUpdate applies one streamed order update to the persisted order
// and feeds closing fills into the breaker's loss streak. Updates for unknown
// orders and repeats of the current status are dropped.
func (rt *Runtime) handleOrderUpdate(update broker.OrderResult) {
	if update.ClientOrderID == "" {
		return
	}
	ctx := context.Background()

	order, err := rt.orders.FindByClientOrderID(ctx, update.ClientOrderID)
	if err != nil {
		logger.WithError(err).WithField("client_order_id", update.ClientOrderID).
			Error("Failed to load order for streamed update")
		return
	}
	if order == nil || order.Status == update.Status || order.Terminal() {
		return
	}

	if err := rt.orders.UpdateStatusWithAutoLog(ctx, order.ID, update.Status, "stream update"); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).
			Error("Failed to apply streamed order update")
		return
	}
	logger.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"status":   update.Status,
	}).Info("order advanced from stream")

	if update.Status == model.OrderStatusFilled {
		rt.Orchestrator.RecordFill(*order, update)
	}
}
