package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// CircuitBreaker runs the portfolio drawdown ladder. Escalation is immediate
// on crossing a threshold; recovery steps down one level at a time and only
// once the drawdown has retreated a full hysteresis band below the threshold.
// Within a session the ladder never skips a recovery step and never recovers
// on its own past what the band allows; an operator reset is the only shortcut
// back to NORMAL.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg Config

	level             string
	peak              decimal.Decimal
	drawdown          decimal.Decimal
	consecutiveLosses int
	lastTransition    time.Time
	lastWhy           string

	now func() time.Time
}

func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:   cfg,
		level: model.BreakerNormal,
		now:   time.Now,
	}
}

// Restore loads a persisted state so a restart does not silently re-arm a
// tripped breaker back to NORMAL.
func (b *CircuitBreaker) Restore(state model.CircuitBreakerState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state.Level != "" {
		b.level = state.Level
	}
	b.peak = state.PeakValue
	b.drawdown = state.DrawdownPct
	b.consecutiveLosses = state.ConsecutiveLosses
	b.lastTransition = state.LastTransition
	b.lastWhy = state.LastTransitionWhy
}

// Observe feeds the current portfolio value into the ladder and returns the
// resulting level. Call once per cycle before sizing.
func (b *CircuitBreaker) Observe(portfolioValue decimal.Decimal) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if portfolioValue.GreaterThan(b.peak) {
		b.peak = portfolioValue
	}
	if b.peak.LessThanOrEqual(decimal.Zero) {
		return b.level
	}
	b.drawdown = b.peak.Sub(portfolioValue).Div(b.peak)

	switch {
	case b.drawdown.GreaterThanOrEqual(b.cfg.HaltedThresholdPct):
		b.transition(model.BreakerHalted, "drawdown crossed halt threshold")
	case b.drawdown.GreaterThanOrEqual(b.cfg.ReducedThresholdPct):
		// Escalate only; a halted breaker stays halted until recovery applies.
		if b.level == model.BreakerNormal {
			b.transition(model.BreakerReduced, "drawdown crossed reduce threshold")
		}
	default:
	}

	b.maybeRecover()
	return b.level
}

// RecordTradeResult tracks consecutive realized losses. Enough losses in a
// row halt the portfolio even without a drawdown threshold breach.
func (b *CircuitBreaker) RecordTradeResult(realizedPnl decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if realizedPnl.LessThan(decimal.Zero) {
		b.consecutiveLosses++
	} else {
		b.consecutiveLosses = 0
	}

	if b.cfg.MaxConsecutiveLosses > 0 && b.consecutiveLosses >= b.cfg.MaxConsecutiveLosses {
		b.transition(model.BreakerHalted, "consecutive loss limit reached")
	}
}

// maybeRecover steps the ladder down one level when the drawdown has pulled
// back a full band below the relevant threshold. Caller holds the lock.
func (b *CircuitBreaker) maybeRecover() {
	switch b.level {
	case model.BreakerHalted:
		if b.consecutiveLosses >= b.cfg.MaxConsecutiveLosses && b.cfg.MaxConsecutiveLosses > 0 {
			return // loss-triggered halt clears only via operator reset
		}
		if b.drawdown.LessThan(b.cfg.HaltedThresholdPct.Sub(b.cfg.RecoveryBandPct)) {
			b.transition(model.BreakerReduced, "drawdown recovered below halt band")
		}
	case model.BreakerReduced:
		if b.drawdown.LessThan(b.cfg.ReducedThresholdPct.Sub(b.cfg.RecoveryBandPct)) {
			b.transition(model.BreakerNormal, "drawdown recovered below reduce band")
		}
	}
}

// Reset is the operator override: back to NORMAL, loss streak cleared, peak
// rebased to the given value so the old peak stops dominating the drawdown.
func (b *CircuitBreaker) Reset(operator, reason string, portfolioValue decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveLosses = 0
	if portfolioValue.GreaterThan(decimal.Zero) {
		b.peak = portfolioValue
		b.drawdown = decimal.Zero
	}
	b.transition(model.BreakerNormal, "operator reset by "+operator+": "+reason)
}

func (b *CircuitBreaker) Level() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}

// Snapshot returns the persistable state for a portfolio.
func (b *CircuitBreaker) Snapshot(portfolioID uint) model.CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return model.CircuitBreakerState{
		PortfolioID:       portfolioID,
		Level:             b.level,
		DrawdownPct:       b.drawdown,
		PeakValue:         b.peak,
		ConsecutiveLosses: b.consecutiveLosses,
		LastTransition:    b.lastTransition,
		LastTransitionWhy: b.lastWhy,
	}
}

// transition changes the level and records why. Caller holds the lock.
func (b *CircuitBreaker) transition(to, why string) {
	if b.level == to {
		return
	}
	logger.WithFields(map[string]interface{}{
		"from":     b.level,
		"to":       to,
		"drawdown": b.drawdown.String(),
		"why":      why,
	}).Warn("circuit breaker transition")

	b.level = to
	b.lastTransition = b.now()
	b.lastWhy = why
}
