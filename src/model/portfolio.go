package model

import "time"

const (
	PortfolioModePaper = "paper"
	PortfolioModeLive  = "live"

	PortfolioStatusActive = "active"
	PortfolioStatusPaused = "paused"
)

// Portfolio is the unit of isolation for the orchestrator. Two portfolios
// (typically one paper, one live) never share in-memory state or storage rows.
//
// Mode is set once at creation and must never be updated afterwards; the
// repository deliberately has no code path that writes it back.
type Portfolio struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:60;uniqueIndex;not null" json:"name"`
	Mode      string     `gorm:"size:10;not null" json:"mode"` // paper, live
	Status    string     `gorm:"size:20;not null;default:active" json:"status"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`
	PausedBy  string     `gorm:"size:60" json:"paused_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}

func (p *Portfolio) IsPaused() bool {
	return p.Status == PortfolioStatusPaused
}
