package model

import "time"

// Exception captures an operational error for post-hoc review: who raised it,
// where, and whatever structured context was available at the time.
type Exception struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PortfolioID uint      `gorm:"index" json:"portfolio_id"`
	Component   string    `gorm:"size:60;not null" json:"component"`
	Operation   string    `gorm:"size:120;not null" json:"operation"`
	Severity    string    `gorm:"size:10;not null;default:error" json:"severity"`
	Message     string    `gorm:"size:500;not null" json:"message"`
	Metadata    string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}
