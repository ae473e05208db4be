package mapper

import (
	"time"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/model"
)

// Wire structs for the Alpaca REST API. All numerics arrive as strings and
// are normalized to decimals here, never used raw.

type AlpacaAccount struct {
	ID               string `json:"id"`
	Cash             string `json:"cash"`
	PortfolioValue   string `json:"portfolio_value"`
	BuyingPower      string `json:"buying_power"`
	Currency         string `json:"currency"`
	PatternDayTrader bool   `json:"pattern_day_trader"`
	TradingBlocked   bool   `json:"trading_blocked"`
	AccountBlocked   bool   `json:"account_blocked"`
}

type AlpacaPosition struct {
	Symbol        string `json:"symbol"`
	AssetClass    string `json:"asset_class"`
	Side          string `json:"side"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	MarketValue   string `json:"market_value"`
	UnrealizedPl  string `json:"unrealized_pl"`
}

type AlpacaOrder struct {
	ID            string     `json:"id"`
	ClientOrderID string     `json:"client_order_id"`
	Symbol        string     `json:"symbol"`
	Side          string     `json:"side"`
	Status        string     `json:"status"`
	Qty           string     `json:"qty"`
	FilledQty     string     `json:"filled_qty"`
	FilledAvgPx   string     `json:"filled_avg_price"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type AlpacaClock struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

type AlpacaBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

type AlpacaSnapshot struct {
	LatestTrade struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"latestTrade"`
	LatestQuote struct {
		BidPrice float64 `json:"bp"`
		AskPrice float64 `json:"ap"`
	} `json:"latestQuote"`
	DailyBar *AlpacaBar `json:"dailyBar"`
}

// MapAlpacaAccount converts an Alpaca account response to the normalized form.
func MapAlpacaAccount(a *AlpacaAccount, retrievedAt time.Time) model.AccountInfo {
	return model.AccountInfo{
		AccountID:      a.ID,
		Cash:           ParseDecimalSafe("cash", a.Cash),
		PortfolioValue: ParseDecimalSafe("portfolio_value", a.PortfolioValue),
		BuyingPower:    ParseDecimalSafe("buying_power", a.BuyingPower),
		Currency:       a.Currency,
		PatternDay:     a.PatternDayTrader,
		RetrievedAt:    retrievedAt,
	}
}

// MapAlpacaPosition converts one Alpaca position to the normalized form.
func MapAlpacaPosition(p *AlpacaPosition) model.BrokerPosition {
	assetClass := p.AssetClass
	if assetClass == "us_equity" || assetClass == "" {
		assetClass = model.AssetClassEquity
	}

	return model.BrokerPosition{
		Symbol:        p.Symbol,
		AssetClass:    assetClass,
		Side:          p.Side,
		Quantity:      ParseDecimalSafe("qty", p.Qty).Abs(),
		AvgEntryPrice: ParseDecimalSafe("avg_entry_price", p.AvgEntryPrice),
		MarketValue:   ParseDecimalSafe("market_value", p.MarketValue),
		UnrealizedPnl: ParseDecimalSafe("unrealized_pl", p.UnrealizedPl),
	}
}

// MapAlpacaOrder converts an Alpaca order response to the normalized result.
func MapAlpacaOrder(o *AlpacaOrder) broker.OrderResult {
	res := broker.OrderResult{
		ClientOrderID: o.ClientOrderID,
		BrokerOrderID: o.ID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		Status:        MapAlpacaOrderStatus(o.Status),
		Quantity:      ParseDecimalSafe("qty", o.Qty),
		FilledQty:     ParseDecimalSafe("filled_qty", o.FilledQty),
		FilledAvgPx:   ParseDecimalSafe("filled_avg_price", o.FilledAvgPx),
	}
	if o.SubmittedAt != nil {
		res.SubmittedAt = *o.SubmittedAt
	}
	if o.UpdatedAt != nil {
		res.UpdatedAt = *o.UpdatedAt
	}
	return res
}

// MapAlpacaOrderStatus folds Alpaca's order states into the shared lifecycle.
func MapAlpacaOrderStatus(s string) string {
	switch s {
	case "new", "pending_new", "accepted_for_bidding":
		return model.OrderStatusNew
	case "accepted", "pending_replace", "replaced":
		return model.OrderStatusAccepted
	case "partially_filled":
		return model.OrderStatusPartiallyFilled
	case "filled":
		return model.OrderStatusFilled
	case "canceled", "pending_cancel", "expired", "done_for_day":
		return model.OrderStatusCancelled
	case "rejected", "stopped", "suspended":
		return model.OrderStatusRejected
	}
	return model.OrderStatusNew
}

// MapAlpacaClock converts the clock response.
func MapAlpacaClock(c *AlpacaClock) model.Clock {
	return model.Clock{
		Timestamp: c.Timestamp,
		IsOpen:    c.IsOpen,
		NextOpen:  c.NextOpen,
		NextClose: c.NextClose,
	}
}

// MapAlpacaBar converts one bar. Alpaca data v2 returns JSON numbers; they are
// routed through decimal.NewFromFloat exactly once, here.
func MapAlpacaBar(symbol string, b AlpacaBar) model.Bar {
	return model.Bar{
		Symbol:    symbol,
		Timestamp: b.Timestamp,
		Open:      floatToDecimal(b.Open),
		High:      floatToDecimal(b.High),
		Low:       floatToDecimal(b.Low),
		Close:     floatToDecimal(b.Close),
		Volume:    floatToDecimal(b.Volume),
	}
}

// MapAlpacaSnapshot converts a snapshot response.
func MapAlpacaSnapshot(symbol string, s *AlpacaSnapshot) model.Snapshot {
	snap := model.Snapshot{
		Symbol:    symbol,
		Price:     floatToDecimal(s.LatestTrade.Price),
		BidPrice:  floatToDecimal(s.LatestQuote.BidPrice),
		AskPrice:  floatToDecimal(s.LatestQuote.AskPrice),
		Timestamp: s.LatestTrade.Timestamp,
	}
	if s.DailyBar != nil {
		bar := MapAlpacaBar(symbol, *s.DailyBar)
		snap.DailyBar = &bar
	}
	return snap
}
