package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RegimeBull     = "bull"
	RegimeBear     = "bear"
	RegimeSideways = "sideways"
	RegimeVolatile = "volatile"
)

// DecisionContext is the immutable point-in-time snapshot handed to analysis
// providers and to the sizing pipeline. It is built once per cycle from broker
// state plus cached market data and never mutated afterwards.
type DecisionContext struct {
	PortfolioID   uint
	PortfolioMode string
	Account       AccountInfo
	Positions     []BrokerPosition
	Prices        map[string]decimal.Decimal
	RecentBars    map[string][]Bar
	Volatility    map[string]decimal.Decimal // ATR as a fraction of price, per symbol
	PeakValue     decimal.Decimal
	DrawdownPct   decimal.Decimal
	Regime        string
	BreakerLevel  string
	Clock         Clock
	BuiltAt       time.Time
}

// PositionFor returns the open position for a symbol, if any.
func (c *DecisionContext) PositionFor(symbol string) (BrokerPosition, bool) {
	for _, p := range c.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return BrokerPosition{}, false
}

// ExposurePct returns a symbol's market value as a fraction of portfolio value.
func (c *DecisionContext) ExposurePct(symbol string) decimal.Decimal {
	if c.Account.PortfolioValue.IsZero() {
		return decimal.Zero
	}
	pos, ok := c.PositionFor(symbol)
	if !ok {
		return decimal.Zero
	}
	return pos.MarketValue.Abs().Div(c.Account.PortfolioValue)
}
