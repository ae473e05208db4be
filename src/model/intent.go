package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
	OrderTypeStop   = "stop"

	SideBuy  = "buy"
	SideSell = "sell"
)

// SizedOrderIntent is the output of the sizing engine: a proposal converted
// into a bounded, exact-decimal order request. It is the only input the risk
// gate accepts and the only thing the controller will ever try to execute.
type SizedOrderIntent struct {
	IntentID   string           `json:"intent_id"`
	Proposal   Proposal         `json:"proposal"`
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	Notional   decimal.Decimal  `json:"notional"`
	Quantity   decimal.Decimal  `json:"quantity"`
	OrderType  string           `json:"order_type"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice  *decimal.Decimal `json:"stop_price,omitempty"`
	// RiskBudget is the fraction of portfolio value this intent consumes,
	// recorded for portfolio-level aggregation.
	RiskBudget decimal.Decimal `json:"risk_budget"`
	ReduceOnly bool            `json:"reduce_only"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	HeldIntentStatusPending  = "pending"
	HeldIntentStatusApproved = "approved"
	HeldIntentStatusDenied   = "denied"
	HeldIntentStatusExpired  = "expired"
)

// HeldIntent parks an approved intent whose notional exceeds the operator
// approval threshold. It is submitted only after an explicit approve call.
type HeldIntent struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PortfolioID uint            `gorm:"index;not null" json:"portfolio_id"`
	IntentID    string          `gorm:"size:40;uniqueIndex;not null" json:"intent_id"`
	Symbol      string          `gorm:"size:20;not null" json:"symbol"`
	Side        string          `gorm:"size:10;not null" json:"side"`
	Notional    decimal.Decimal `gorm:"type:numeric" json:"notional"`
	IntentJSON  string          `gorm:"type:text;not null" json:"intent_json"`
	Status      string          `gorm:"size:20;not null;default:pending" json:"status"`
	DecidedBy   string          `gorm:"size:60" json:"decided_by,omitempty"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (HeldIntent) TableName() string {
	return "held_intents"
}
