package risk

import (
	"testing"
	"time"

	"tradeorchestrator/src/model"
)

func haltedContext(positions ...model.BrokerPosition) model.DecisionContext {
	return model.DecisionContext{
		Account:      model.AccountInfo{PortfolioValue: value("100000")},
		Positions:    positions,
		BreakerLevel: model.BreakerHalted,
	}
}

func longPosition(symbol, qty, marketValue string) model.BrokerPosition {
	return model.BrokerPosition{
		Symbol: symbol, AssetClass: model.AssetClassEquity, Side: model.DirectionLong,
		Quantity: value(qty), MarketValue: value(marketValue),
	}
}

func TestUnwindEmitsFractionPerWindow(t *testing.T) {
	u := NewUnwinder(testRiskConfig())
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return base }

	intents := u.Intents(haltedContext(longPosition("AAPL", "100", "20000")))
	if len(intents) != 1 {
		t.Fatalf("expected 1 unwind intent, got %d", len(intents))
	}
	got := intents[0]
	if !got.ReduceOnly {
		t.Fatal("unwind intents must be reduce-only")
	}
	if got.Side != model.SideSell {
		t.Fatalf("long position unwinds with a sell, got %s", got.Side)
	}
	if !got.Quantity.Equal(value("25")) {
		t.Fatalf("quantity %s, expected 25%% of 100", got.Quantity)
	}
}

func TestUnwindRespectsWindow(t *testing.T) {
	u := NewUnwinder(testRiskConfig())
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return base }
	dc := haltedContext(longPosition("AAPL", "100", "20000"))

	if got := u.Intents(dc); len(got) != 1 {
		t.Fatalf("first window expected 1 intent, got %d", len(got))
	}

	u.now = func() time.Time { return base.Add(10 * time.Minute) }
	if got := u.Intents(dc); len(got) != 0 {
		t.Fatalf("inside window expected no intents, got %d", len(got))
	}

	u.now = func() time.Time { return base.Add(31 * time.Minute) }
	if got := u.Intents(dc); len(got) != 1 {
		t.Fatalf("after window expected 1 intent, got %d", len(got))
	}
}

func TestUnwindClosesResidualInFull(t *testing.T) {
	u := NewUnwinder(testRiskConfig())
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return base }

	// The whole position is worth 60 USD, at or below the 100 USD full-close
	// cutoff, so it closes outright instead of being shaved.
	intents := u.Intents(haltedContext(longPosition("AAPL", "0.3", "60")))
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}
	if !intents[0].Quantity.Equal(value("0.3")) {
		t.Fatalf("residual should close in full, got quantity %s", intents[0].Quantity)
	}
}

func TestUnwindShortPositionBuysBack(t *testing.T) {
	u := NewUnwinder(testRiskConfig())
	u.now = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }

	short := model.BrokerPosition{
		Symbol: "TSLA", AssetClass: model.AssetClassEquity, Side: model.DirectionShort,
		Quantity: value("-40"), MarketValue: value("-8000"),
	}
	intents := u.Intents(haltedContext(short))
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}
	if intents[0].Side != model.SideBuy {
		t.Fatalf("short position unwinds with a buy, got %s", intents[0].Side)
	}
	if !intents[0].Quantity.Equal(value("10")) {
		t.Fatalf("quantity %s, expected 10", intents[0].Quantity)
	}
}

func TestUnwindSilentWhenNotHalted(t *testing.T) {
	u := NewUnwinder(testRiskConfig())
	dc := haltedContext(longPosition("AAPL", "100", "20000"))
	dc.BreakerLevel = model.BreakerReduced

	if got := u.Intents(dc); got != nil {
		t.Fatalf("expected no intents below halted, got %d", len(got))
	}
}
