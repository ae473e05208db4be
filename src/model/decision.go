package model

import (
	"encoding/json"
	"time"
)

const (
	DecisionTypeEntry       = "entry"
	DecisionTypeExit        = "exit"
	DecisionTypeUnwind      = "unwind"
	DecisionTypeSkip        = "skip"
	DecisionTypeProviderErr = "provider_error"

	DecisionOutcomeExecuted = "executed"
	DecisionOutcomeRejected = "rejected"
	DecisionOutcomeDropped  = "dropped"
	DecisionOutcomeHeld     = "held"
	DecisionOutcomeFailed   = "failed"
	DecisionOutcomeNoAction = "no_action"
)

// Decision is one append-only audit row chaining a proposal through sizing,
// the risk gate verdict, the resulting order (if any) and the outcome.
// Rows are never updated in place; a correction is a new row whose
// SupersedesID references the prior one.
type Decision struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PortfolioID   uint      `gorm:"index;not null" json:"portfolio_id"`
	CorrelationID string    `gorm:"size:40;index;not null" json:"correlation_id"`
	Phase         string    `gorm:"size:30;not null" json:"phase"`
	DecisionType  string    `gorm:"size:20;not null" json:"decision_type"`
	Symbol        string    `gorm:"size:20;index" json:"symbol,omitempty"`
	Provider      string    `gorm:"size:40" json:"provider,omitempty"`
	IntentID      string    `gorm:"size:40;index" json:"intent_id,omitempty"`
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`
	ProposalJSON  string    `gorm:"type:text" json:"proposal_json,omitempty"`
	IntentJSON    string    `gorm:"type:text" json:"intent_json,omitempty"`
	VerdictJSON   string    `gorm:"type:text" json:"verdict_json,omitempty"`
	Outcome       string    `gorm:"size:20;not null" json:"outcome"`
	Reason        string    `gorm:"size:255" json:"reason,omitempty"`
	BreakerLevel  string    `gorm:"size:10" json:"breaker_level,omitempty"`
	SupersedesID  *uint     `gorm:"index" json:"supersedes_id,omitempty"`
	DecidedAt     time.Time `gorm:"index;not null" json:"decided_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Decision) TableName() string {
	return "decisions"
}

// AttachProposal serializes the proposal into the audit row.
func (d *Decision) AttachProposal(p Proposal) {
	if b, err := json.Marshal(p); err == nil {
		d.ProposalJSON = string(b)
	}
	d.Symbol = p.Symbol
	d.Provider = p.Source
}

// AttachIntent serializes the sized intent into the audit row.
func (d *Decision) AttachIntent(i SizedOrderIntent) {
	if b, err := json.Marshal(i); err == nil {
		d.IntentJSON = string(b)
	}
	d.IntentID = i.IntentID
}

// AttachVerdict serializes the risk gate verdict into the audit row.
func (d *Decision) AttachVerdict(v RiskGateVerdict) {
	if b, err := json.Marshal(v); err == nil {
		d.VerdictJSON = string(b)
	}
	d.BreakerLevel = v.BreakerLevel
}
