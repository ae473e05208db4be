package broker

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// Facade composes one trading backend with per-asset-class market-data
// backends and exposes a single uniform surface to the orchestrator.
// Trading and data can come from different venues; the orchestrator never
// learns which.
type Facade struct {
	trading     Broker
	data        map[string]MarketData // keyed by asset class
	defaultData MarketData
}

// NewFacade builds a facade around a trading backend and a default
// market-data backend.
func NewFacade(trading Broker, defaultData MarketData) *Facade {
	return &Facade{
		trading:     trading,
		data:        make(map[string]MarketData),
		defaultData: defaultData,
	}
}

// WithDataBackend routes market data for one asset class to a different
// backend (e.g. crypto bars from an exchange while equities trade elsewhere).
func (f *Facade) WithDataBackend(assetClass string, md MarketData) *Facade {
	f.data[assetClass] = md
	return f
}

func (f *Facade) dataFor(assetClass string) MarketData {
	if md, ok := f.data[assetClass]; ok {
		return md
	}
	return f.defaultData
}

func (f *Facade) TradingBackend() string {
	return f.trading.Name()
}

func (f *Facade) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	return f.trading.GetAccount(ctx)
}

func (f *Facade) GetPositions(ctx context.Context) ([]model.BrokerPosition, error) {
	return f.trading.GetPositions(ctx)
}

func (f *Facade) SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	logger.WithFields(map[string]interface{}{
		"broker":          f.trading.Name(),
		"client_order_id": req.ClientOrderID,
		"symbol":          req.Symbol,
		"side":            req.Side,
		"qty":             req.Quantity.String(),
	}).Info("submitting order")

	return f.trading.SubmitOrder(ctx, req)
}

func (f *Facade) CancelOrder(ctx context.Context, brokerOrderID string) error {
	return f.trading.CancelOrder(ctx, brokerOrderID)
}

func (f *Facade) GetOrder(ctx context.Context, brokerOrderID string) (OrderResult, error) {
	return f.trading.GetOrder(ctx, brokerOrderID)
}

func (f *Facade) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]OrderResult, error) {
	return f.trading.ListOrders(ctx, filter)
}

func (f *Facade) GetClock(ctx context.Context) (model.Clock, error) {
	return f.trading.GetClock(ctx)
}

func (f *Facade) GetBars(ctx context.Context, assetClass, symbol string, start, end time.Time, tf model.Timeframe) ([]model.Bar, error) {
	return f.dataFor(assetClass).GetBars(ctx, symbol, start, end, tf)
}

func (f *Facade) GetBarsMulti(ctx context.Context, assetClass string, symbols []string, start, end time.Time, tf model.Timeframe) (map[string][]model.Bar, error) {
	return f.dataFor(assetClass).GetBarsMulti(ctx, symbols, start, end, tf)
}

func (f *Facade) GetSnapshot(ctx context.Context, assetClass, symbol string) (model.Snapshot, error) {
	return f.dataFor(assetClass).GetSnapshot(ctx, symbol)
}
