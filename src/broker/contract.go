package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

// OrderRequest is the broker-agnostic order submission payload. Quantity and
// prices are exact decimals; adapters convert to whatever the backend wants.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          string // buy, sell
	OrderType     string // market, limit, stop
	Quantity      decimal.Decimal
	Notional      decimal.Decimal
	LimitPrice    *decimal.Decimal
	StopPrice     *decimal.Decimal
	ReduceOnly    bool
	TimeInForce   string
}

// OrderResult is the normalized view of a broker order returned by submit,
// get and list operations.
type OrderResult struct {
	ClientOrderID string
	BrokerOrderID string
	Symbol        string
	Side          string
	Status        string
	Quantity      decimal.Decimal
	FilledQty     decimal.Decimal
	FilledAvgPx   decimal.Decimal
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}

// ListOrdersFilter narrows ListOrders. Zero values mean "no filter".
type ListOrdersFilter struct {
	Status string // open, closed, all
	Since  time.Time
	Limit  int
}

// Broker is the trading contract every brokerage adapter implements.
// All calls take a context and honor its deadline.
type Broker interface {
	Name() string
	GetAccount(ctx context.Context) (model.AccountInfo, error)
	GetPositions(ctx context.Context) ([]model.BrokerPosition, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
	GetOrder(ctx context.Context, brokerOrderID string) (OrderResult, error)
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]OrderResult, error)
	GetClock(ctx context.Context) (model.Clock, error)
}

// MarketData is the independently swappable market-data contract.
type MarketData interface {
	Name() string
	GetBars(ctx context.Context, symbol string, start, end time.Time, tf model.Timeframe) ([]model.Bar, error)
	GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, tf model.Timeframe) (map[string][]model.Bar, error)
	GetSnapshot(ctx context.Context, symbol string) (model.Snapshot, error)
}
