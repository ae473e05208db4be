package risk

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Drawdown ladder thresholds, as fractions of the session peak value.
	ReducedThresholdPct decimal.Decimal `envconfig:"RISK_REDUCED_THRESHOLD_PCT" default:"0.10"`
	HaltedThresholdPct  decimal.Decimal `envconfig:"RISK_HALTED_THRESHOLD_PCT" default:"0.20"`
	// RecoveryBandPct is the hysteresis band: recovery requires the drawdown
	// to fall this far below the threshold that triggered the level, so the
	// breaker does not flap around a threshold.
	RecoveryBandPct      decimal.Decimal `envconfig:"RISK_RECOVERY_BAND_PCT" default:"0.02"`
	MaxConsecutiveLosses int             `envconfig:"RISK_MAX_CONSECUTIVE_LOSSES" default:"5"`

	// Hard portfolio constraints enforced by the gate.
	MaxSymbolPct      decimal.Decimal `envconfig:"RISK_MAX_SYMBOL_PCT" default:"0.10"`
	MaxAssetClassPct  decimal.Decimal `envconfig:"RISK_MAX_ASSET_CLASS_PCT" default:"0.40"`
	MinCashReservePct decimal.Decimal `envconfig:"RISK_MIN_CASH_RESERVE_PCT" default:"0.10"`
	MinAdjustedUSD    decimal.Decimal `envconfig:"RISK_MIN_ADJUSTED_USD" default:"1.00"`

	// Progressive unwind at HALTED. Positions whose whole notional is at or
	// below UnwindFullCloseUSD are closed outright instead of shaved.
	UnwindFractionPct  decimal.Decimal `envconfig:"RISK_UNWIND_FRACTION_PCT" default:"0.25"`
	UnwindInterval     time.Duration   `envconfig:"RISK_UNWIND_INTERVAL" default:"30m"`
	UnwindFullCloseUSD decimal.Decimal `envconfig:"RISK_UNWIND_FULL_CLOSE_USD" default:"100.00"`
}

func GetConfig() Config {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		panic(err)
	}
	return config
}
