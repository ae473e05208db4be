package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is the closed set of bar resolutions the market-data contract
// accepts. Adapters translate these to their backend's own notation.
type Timeframe string

const (
	TimeframeMinute   Timeframe = "1m"
	Timeframe5Minute  Timeframe = "5m"
	Timeframe15Minute Timeframe = "15m"
	Timeframe30Minute Timeframe = "30m"
	TimeframeHour     Timeframe = "1h"
	TimeframeDay      Timeframe = "1d"
	TimeframeWeek     Timeframe = "1w"
)

// ParseTimeframe validates a timeframe string at the boundary.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TimeframeMinute, Timeframe5Minute, Timeframe15Minute, Timeframe30Minute, TimeframeHour, TimeframeDay, TimeframeWeek:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("invalid timeframe %q", s)
}

// Duration returns the wall-clock span of one bar.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TimeframeMinute:
		return time.Minute
	case Timeframe5Minute:
		return 5 * time.Minute
	case Timeframe15Minute:
		return 15 * time.Minute
	case Timeframe30Minute:
		return 30 * time.Minute
	case TimeframeHour:
		return time.Hour
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Bar is one OHLCV candle, normalized to exact decimals.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Snapshot is the latest quote/trade view for one symbol.
type Snapshot struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	BidPrice  decimal.Decimal `json:"bid_price"`
	AskPrice  decimal.Decimal `json:"ask_price"`
	DailyBar  *Bar            `json:"daily_bar,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
