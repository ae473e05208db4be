package executors

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/controller"
	"tradeorchestrator/src/model"
	"tradeorchestrator/src/risk"
)

type stubOrderStore struct {
	order   *model.Order
	updates []string
}

func (s *stubOrderStore) FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error) {
	if s.order != nil && s.order.ClientOrderID == clientOrderID {
		return s.order, nil
	}
	return nil, nil
}

func (s *stubOrderStore) UpdateStatusWithAutoLog(ctx context.Context, orderID uint, status, reason string) error {
	s.updates = append(s.updates, status)
	return nil
}

func newStreamRuntime(store orderSyncStore) *Runtime {
	breaker := risk.NewCircuitBreaker(risk.Config{MaxConsecutiveLosses: 1})
	return &Runtime{
		Orchestrator: controller.NewOrchestrator(controller.Config{}, controller.Deps{Breaker: breaker}),
		Breaker:      breaker,
		orders:       store,
	}
}

// A streamed losing fill advances the order and reaches the breaker's loss
// streak in the same call.
func TestHandleOrderUpdateAppliesFillAndRecordsLoss(t *testing.T) {
	store := &stubOrderStore{order: &model.Order{
		ID:            7,
		ClientOrderID: "co-7",
		Symbol:        "MESU6",
		Side:          model.SideSell,
		Status:        model.OrderStatusAccepted,
		EntryPrice:    decimal.RequireFromString("5100"),
	}}
	rt := newStreamRuntime(store)

	rt.handleOrderUpdate(broker.OrderResult{
		ClientOrderID: "co-7",
		Status:        model.OrderStatusFilled,
		FilledQty:     decimal.RequireFromString("2"),
		FilledAvgPx:   decimal.RequireFromString("5050"),
	})

	if len(store.updates) != 1 || store.updates[0] != model.OrderStatusFilled {
		t.Fatalf("expected one filled update, got %v", store.updates)
	}
	if got := rt.Breaker.Level(); got != model.BreakerHalted {
		t.Fatalf("breaker level %s, expected halted after the losing fill", got)
	}
}

func TestHandleOrderUpdateDropsUnknownAndStaleUpdates(t *testing.T) {
	store := &stubOrderStore{order: &model.Order{
		ID:            8,
		ClientOrderID: "co-8",
		Status:        model.OrderStatusFilled,
	}}
	rt := newStreamRuntime(store)

	// Unknown client order id.
	rt.handleOrderUpdate(broker.OrderResult{ClientOrderID: "co-unknown", Status: model.OrderStatusFilled})
	// Terminal order must not transition again.
	rt.handleOrderUpdate(broker.OrderResult{ClientOrderID: "co-8", Status: model.OrderStatusCancelled})

	if len(store.updates) != 0 {
		t.Fatalf("expected no updates, got %v", store.updates)
	}
	if got := rt.Breaker.Level(); got != model.BreakerNormal {
		t.Fatalf("breaker level %s, expected normal", got)
	}
}
