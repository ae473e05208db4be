package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AssetClassEquity = "equity"
	AssetClassCrypto = "crypto"
	AssetClassFuture = "future"
)

// AccountInfo is a read-only mirror of broker-reported account state,
// pulled once per cycle. Never mutated locally.
type AccountInfo struct {
	AccountID      string          `json:"account_id"`
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	Currency       string          `json:"currency"`
	PatternDay     bool            `json:"pattern_day_trader"`
	RetrievedAt    time.Time       `json:"retrieved_at"`
}

// BrokerPosition is a read-only mirror of one broker-reported position.
type BrokerPosition struct {
	Symbol        string          `json:"symbol"`
	AssetClass    string          `json:"asset_class"`
	Side          string          `json:"side"` // long, short
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	Sector        string          `json:"sector,omitempty"`
}

// Clock is the broker market clock.
type Clock struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}
