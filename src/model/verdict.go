package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	VerdictApprove      = "approve"
	VerdictReduce       = "reduce"
	VerdictReject       = "reject"
	VerdictRequireHedge = "require_hedge" // reserved for options support, treated as reject
)

// RiskGateVerdict is the gate's ruling on a single intent. Exactly one verdict
// exists per intent; no order is submitted without an approve or reduce.
type RiskGateVerdict struct {
	IntentID         string          `json:"intent_id"`
	Outcome          string          `json:"outcome"`
	Reason           string          `json:"reason,omitempty"`
	AdjustedNotional decimal.Decimal `json:"adjusted_notional"`
	AdjustedQuantity decimal.Decimal `json:"adjusted_quantity"`
	BreakerLevel     string          `json:"breaker_level"`
	IssuedAt         time.Time       `json:"issued_at"`
}

// Executable reports whether the verdict allows an order to be placed.
func (v RiskGateVerdict) Executable() bool {
	return v.Outcome == VerdictApprove || v.Outcome == VerdictReduce
}
