package mapper

import (
	"time"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/model"
)

// Wire structs for the Tradovate REST API. Unlike Alpaca, orders reference a
// numeric contract id instead of a symbol; the instrument resolver supplies
// the mapping before any order leaves the adapter.

type TradovateAccount struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	CashBalance float64 `json:"cashBalance"`
	TotalValue  float64 `json:"totalCashValue"`
	BuyingPower float64 `json:"buyingPower"`
	Currency    string  `json:"currency"`
}

type TradovatePosition struct {
	ContractID int64   `json:"contractId"`
	Symbol     string  `json:"symbol"`
	NetPos     float64 `json:"netPos"`
	NetPrice   float64 `json:"netPrice"`
	OpenPnl    float64 `json:"openPnl"`
	MarketVal  float64 `json:"marketValue"`
}

type TradovateOrder struct {
	ID         int64      `json:"id"`
	ClOrdID    string     `json:"clOrdId"`
	ContractID int64      `json:"contractId"`
	Symbol     string     `json:"symbol"`
	Action     string     `json:"action"` // Buy, Sell
	OrdStatus  string     `json:"ordStatus"`
	OrderQty   float64    `json:"orderQty"`
	CumQty     float64    `json:"cumQty"`
	AvgPx      float64    `json:"avgPx"`
	Timestamp  *time.Time `json:"timestamp"`
	UpdatedAt  *time.Time `json:"updated"`
}

type TradovateContract struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MapTradovateAccount converts a Tradovate account to the normalized form.
func MapTradovateAccount(a *TradovateAccount, retrievedAt time.Time) model.AccountInfo {
	currency := a.Currency
	if currency == "" {
		currency = "USD"
	}
	return model.AccountInfo{
		AccountID:      a.Name,
		Cash:           floatToDecimal(a.CashBalance),
		PortfolioValue: floatToDecimal(a.TotalValue),
		BuyingPower:    floatToDecimal(a.BuyingPower),
		Currency:       currency,
		RetrievedAt:    retrievedAt,
	}
}

// MapTradovatePosition converts one Tradovate position. Net position sign
// carries the side; quantity is normalized to a positive decimal.
func MapTradovatePosition(p *TradovatePosition) model.BrokerPosition {
	side := "long"
	if p.NetPos < 0 {
		side = "short"
	}
	return model.BrokerPosition{
		Symbol:        p.Symbol,
		AssetClass:    model.AssetClassFuture,
		Side:          side,
		Quantity:      floatToDecimal(p.NetPos).Abs(),
		AvgEntryPrice: floatToDecimal(p.NetPrice),
		MarketValue:   floatToDecimal(p.MarketVal),
		UnrealizedPnl: floatToDecimal(p.OpenPnl),
	}
}

// MapTradovateOrder converts an order response to the normalized result.
func MapTradovateOrder(o *TradovateOrder) broker.OrderResult {
	side := model.SideBuy
	if o.Action == "Sell" {
		side = model.SideSell
	}

	res := broker.OrderResult{
		ClientOrderID: o.ClOrdID,
		BrokerOrderID: formatInt64(o.ID),
		Symbol:        o.Symbol,
		Side:          side,
		Status:        MapTradovateOrderStatus(o.OrdStatus),
		Quantity:      floatToDecimal(o.OrderQty),
		FilledQty:     floatToDecimal(o.CumQty),
		FilledAvgPx:   floatToDecimal(o.AvgPx),
	}
	if o.Timestamp != nil {
		res.SubmittedAt = *o.Timestamp
	}
	if o.UpdatedAt != nil {
		res.UpdatedAt = *o.UpdatedAt
	}
	return res
}

// MapTradovateOrderStatus folds Tradovate ordStatus values into the shared
// lifecycle.
func MapTradovateOrderStatus(s string) string {
	switch s {
	case "PendingNew":
		return model.OrderStatusNew
	case "Working", "Accepted":
		return model.OrderStatusAccepted
	case "PartiallyFilled":
		return model.OrderStatusPartiallyFilled
	case "Filled", "Completed":
		return model.OrderStatusFilled
	case "Canceled", "PendingCancel", "Expired":
		return model.OrderStatusCancelled
	case "Rejected", "Suspended":
		return model.OrderStatusRejected
	}
	return model.OrderStatusNew
}
