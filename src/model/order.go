package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusNew             = "new"
	OrderStatusAccepted        = "accepted"
	OrderStatusPartiallyFilled = "partially_filled"
	OrderStatusFilled          = "filled"
	OrderStatusCancelled       = "cancelled"
	OrderStatusRejected        = "rejected"
	OrderStatusFailed          = "failed"
)

// Order represents an order the orchestrator sends to a brokerage backend.
// It mutates through the status lifecycle until a terminal status is reached.
type Order struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	PortfolioID   uint             `gorm:"index;not null" json:"portfolio_id"`
	ClientOrderID string           `gorm:"size:40;uniqueIndex;not null" json:"client_order_id"`
	BrokerOrderID string           `gorm:"size:60;index" json:"broker_order_id"`
	IntentID      string           `gorm:"size:40;index;not null" json:"intent_id"`
	Broker        string           `gorm:"size:20;not null" json:"broker"`
	Symbol        string           `gorm:"size:20;not null" json:"symbol"`
	Side          string           `gorm:"size:10;not null" json:"side"`
	OrderType     string           `gorm:"size:10;not null" json:"order_type"`
	Quantity      decimal.Decimal  `gorm:"type:numeric" json:"quantity"`
	Notional      decimal.Decimal  `gorm:"type:numeric" json:"notional"`
	LimitPrice    *decimal.Decimal `gorm:"type:numeric" json:"limit_price,omitempty"`
	EntryPrice    decimal.Decimal  `gorm:"type:numeric" json:"entry_price,omitempty"`
	Status        string           `gorm:"size:30;not null;default:new" json:"status"`
	FilledQty     decimal.Decimal  `gorm:"type:numeric" json:"filled_qty"`
	FilledAvgPx   decimal.Decimal  `gorm:"type:numeric" json:"filled_avg_px"`
	ReduceOnly    bool             `json:"reduce_only"`
	SubmittedAt   *time.Time       `json:"submitted_at,omitempty"`
	FilledAt      *time.Time       `json:"filled_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// One-to-many relation: one order can have many status transition logs.
	Logs []OrderLog `gorm:"foreignKey:OrderID" json:"order_logs,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// Terminal reports whether the status will not change again.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusFailed:
		return true
	}
	return false
}

// OrderLog records a single status transition on an order.
type OrderLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	OldStatus string    `gorm:"size:30" json:"old_status"`
	NewStatus string    `gorm:"size:30;not null" json:"new_status"`
	Reason    string    `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderLog) TableName() string {
	return "order_logs"
}
