package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

func testRiskConfig() Config {
	return Config{
		ReducedThresholdPct:  decimal.RequireFromString("0.10"),
		HaltedThresholdPct:   decimal.RequireFromString("0.20"),
		RecoveryBandPct:      decimal.RequireFromString("0.02"),
		MaxConsecutiveLosses: 5,
		MaxSymbolPct:         decimal.RequireFromString("0.10"),
		MaxAssetClassPct:     decimal.RequireFromString("0.40"),
		MinCashReservePct:    decimal.RequireFromString("0.10"),
		MinAdjustedUSD:       decimal.RequireFromString("1.00"),
		UnwindFractionPct:    decimal.RequireFromString("0.25"),
		UnwindInterval:       30 * time.Minute,
		UnwindFullCloseUSD:   decimal.RequireFromString("100.00"),
	}
}

func value(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBreakerLadderEscalation(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())

	// Peak at 100k, then walk the drawdown through 5%, 12% and 21%.
	if got := b.Observe(value("100000")); got != model.BreakerNormal {
		t.Fatalf("at peak expected normal, got %s", got)
	}
	if got := b.Observe(value("95000")); got != model.BreakerNormal {
		t.Fatalf("at 5%% drawdown expected normal, got %s", got)
	}
	if got := b.Observe(value("88000")); got != model.BreakerReduced {
		t.Fatalf("at 12%% drawdown expected reduced, got %s", got)
	}
	if got := b.Observe(value("79000")); got != model.BreakerHalted {
		t.Fatalf("at 21%% drawdown expected halted, got %s", got)
	}
}

func TestBreakerHysteresisNoFlapping(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())
	b.Observe(value("100000"))
	b.Observe(value("88000")) // 12%, reduced

	// Recovering to just under the threshold is not enough; the drawdown must
	// clear the band (10% - 2% = 8%) before the level steps down.
	if got := b.Observe(value("90500")); got != model.BreakerReduced { // 9.5%
		t.Fatalf("inside hysteresis band expected reduced, got %s", got)
	}
	if got := b.Observe(value("92500")); got != model.BreakerNormal { // 7.5%
		t.Fatalf("below band expected normal, got %s", got)
	}
}

func TestBreakerRecoveryStepsOneLevelAtATime(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())
	b.Observe(value("100000"))
	b.Observe(value("78000")) // 22%, halted

	// A single jump back to a 5% drawdown still only steps down one level.
	if got := b.Observe(value("95000")); got != model.BreakerReduced {
		t.Fatalf("first recovery observation expected reduced, got %s", got)
	}
	if got := b.Observe(value("95000")); got != model.BreakerNormal {
		t.Fatalf("second recovery observation expected normal, got %s", got)
	}
}

func TestBreakerConsecutiveLossesHalt(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())
	b.Observe(value("100000"))

	for i := 0; i < 4; i++ {
		b.RecordTradeResult(value("-100"))
	}
	if got := b.Level(); got != model.BreakerNormal {
		t.Fatalf("below loss limit expected normal, got %s", got)
	}

	b.RecordTradeResult(value("-100"))
	if got := b.Level(); got != model.BreakerHalted {
		t.Fatalf("at loss limit expected halted, got %s", got)
	}

	// Loss-triggered halts do not auto-recover on a benign drawdown.
	if got := b.Observe(value("99000")); got != model.BreakerHalted {
		t.Fatalf("loss halt must persist until reset, got %s", got)
	}
}

func TestBreakerWinResetsLossStreak(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())
	for i := 0; i < 4; i++ {
		b.RecordTradeResult(value("-100"))
	}
	b.RecordTradeResult(value("250"))
	for i := 0; i < 4; i++ {
		b.RecordTradeResult(value("-100"))
	}
	if got := b.Level(); got != model.BreakerNormal {
		t.Fatalf("streak was broken by a win, expected normal, got %s", got)
	}
}

func TestBreakerOperatorReset(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())
	b.Observe(value("100000"))
	b.Observe(value("78000"))

	b.Reset("ops", "reviewed and cleared", value("78000"))
	if got := b.Level(); got != model.BreakerNormal {
		t.Fatalf("after reset expected normal, got %s", got)
	}

	// Peak was rebased, so the old peak no longer dominates the drawdown.
	if got := b.Observe(value("77000")); got != model.BreakerNormal { // ~1.3% off new peak
		t.Fatalf("after rebase expected normal, got %s", got)
	}

	snap := b.Snapshot(1)
	if !snap.PeakValue.Equal(value("78000")) {
		t.Fatalf("snapshot peak %s, expected rebased 78000", snap.PeakValue)
	}
}

func TestBreakerRestoreSurvivesRestart(t *testing.T) {
	b := NewCircuitBreaker(testRiskConfig())
	b.Observe(value("100000"))
	b.Observe(value("78000"))
	snap := b.Snapshot(7)

	fresh := NewCircuitBreaker(testRiskConfig())
	fresh.Restore(snap)
	if got := fresh.Level(); got != model.BreakerHalted {
		t.Fatalf("restored breaker expected halted, got %s", got)
	}
}
