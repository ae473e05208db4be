package model

import "time"

// InstrumentCacheEntry maps a tradable symbol to a broker-specific instrument
// identifier. Created on first resolution miss, refreshed on TTL expiry.
type InstrumentCacheEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Broker     string    `gorm:"size:20;not null;uniqueIndex:idx_broker_symbol" json:"broker"`
	Symbol     string    `gorm:"size:20;not null;uniqueIndex:idx_broker_symbol" json:"symbol"`
	AssetClass string    `gorm:"size:20;not null" json:"asset_class"`
	BrokerID   string    `gorm:"size:60;not null" json:"broker_instrument_id"`
	ResolvedAt time.Time `gorm:"not null" json:"resolved_at"`
	TTLSeconds int64     `gorm:"not null" json:"ttl_seconds"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (InstrumentCacheEntry) TableName() string {
	return "instrument_cache"
}

// Expired reports whether the entry is past its TTL at the given time.
func (e *InstrumentCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ResolvedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}
