package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BreakerNormal  = "normal"
	BreakerReduced = "reduced"
	BreakerHalted  = "halted"
)

// CircuitBreakerState is the persisted snapshot of the drawdown ladder for
// one portfolio. Mutated only by the risk gate; monotonic within a session
// except via explicit operator reset.
type CircuitBreakerState struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	PortfolioID       uint            `gorm:"uniqueIndex;not null" json:"portfolio_id"`
	Level             string          `gorm:"size:10;not null;default:normal" json:"level"`
	DrawdownPct       decimal.Decimal `gorm:"type:numeric" json:"drawdown_pct"`
	PeakValue         decimal.Decimal `gorm:"type:numeric" json:"peak_value"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
	LastTransition    time.Time       `json:"last_transition"`
	LastTransitionWhy string          `gorm:"size:255" json:"last_transition_why,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (CircuitBreakerState) TableName() string {
	return "circuit_breaker_states"
}
