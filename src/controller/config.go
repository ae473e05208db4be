package controller

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Watchlist    []string `envconfig:"ORCH_WATCHLIST" default:"AAPL,MSFT,NVDA,SPY"`
	BarTimeframe string   `envconfig:"ORCH_BAR_TIMEFRAME" default:"1d"`
	LookbackBars int      `envconfig:"ORCH_LOOKBACK_BARS" default:"30"`
	ATRPeriod    int      `envconfig:"ORCH_ATR_PERIOD" default:"14"`

	// Per-provider call budget and the hard deadline for a whole cycle.
	ProviderTimeout time.Duration `envconfig:"ORCH_PROVIDER_TIMEOUT" default:"20s"`
	CycleTimeout    time.Duration `envconfig:"ORCH_CYCLE_TIMEOUT" default:"2m"`

	// Intents at or above this notional are parked for operator approval
	// instead of executing immediately.
	HeldNotionalUSD decimal.Decimal `envconfig:"ORCH_HELD_NOTIONAL_USD" default:"25000"`

	// How long a provider's stale output stays usable as a degradation step.
	LastGoodMaxAge time.Duration `envconfig:"ORCH_LAST_GOOD_MAX_AGE" default:"30m"`

	// Regime classification knobs.
	VolatileATRPct  decimal.Decimal `envconfig:"ORCH_VOLATILE_ATR_PCT" default:"0.04"`
	SidewaysBandPct decimal.Decimal `envconfig:"ORCH_SIDEWAYS_BAND_PCT" default:"0.01"`
}

func GetConfig() Config {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		panic(err)
	}
	return config
}
