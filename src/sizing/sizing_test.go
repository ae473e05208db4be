package sizing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

func testContext(breaker string) model.DecisionContext {
	return model.DecisionContext{
		Account: model.AccountInfo{
			PortfolioValue: decimal.RequireFromString("100000"),
			Cash:           decimal.RequireFromString("40000"),
		},
		Prices:       map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("200")},
		Volatility:   map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("0.02")},
		Regime:       model.RegimeBull,
		BreakerLevel: breaker,
		BuiltAt:      time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func testProposal(conviction string) model.Proposal {
	return model.Proposal{
		Symbol:     "AAPL",
		Direction:  model.DirectionLong,
		Source:     "alpha",
		Conviction: decimal.RequireFromString(conviction),
	}
}

func TestSizeFormulaExact(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res := e.Size(testProposal("0.5"), testContext(model.BreakerNormal))

	if res.Dropped {
		t.Fatalf("unexpected drop: %s", res.Reason)
	}
	// 0.02 * 1.0 * 1.0 * 0.5 = 0.01 risk budget
	// 0.01 * 100000 / 0.02 = 50000, capped at 10% of 100000 = 10000
	if !res.Intent.RiskBudget.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("risk budget %s, expected 0.01", res.Intent.RiskBudget)
	}
	if !res.Intent.Notional.Equal(decimal.RequireFromString("10000")) {
		t.Fatalf("notional %s, expected 10000 after cap", res.Intent.Notional)
	}
	if !res.Intent.Quantity.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("quantity %s, expected 50 at price 200", res.Intent.Quantity)
	}
	if res.Intent.Side != model.SideBuy {
		t.Fatalf("side %s, expected buy", res.Intent.Side)
	}
}

func TestSizeNeverExceedsMaxPositionPct(t *testing.T) {
	e := NewEngine(DefaultConfig())
	dc := testContext(model.BreakerNormal)
	cap := decimal.RequireFromString("0.10").Mul(dc.Account.PortfolioValue)

	// Sweep volatility and conviction; the cap must hold everywhere.
	for _, vol := range []string{"0.001", "0.005", "0.02", "0.10"} {
		for _, conv := range []string{"0.1", "0.5", "1.0"} {
			dc.Volatility["AAPL"] = decimal.RequireFromString(vol)
			res := e.Size(testProposal(conv), dc)
			if res.Dropped {
				continue
			}
			if res.Intent.Notional.GreaterThan(cap) {
				t.Fatalf("vol=%s conv=%s: notional %s exceeds cap %s",
					vol, conv, res.Intent.Notional, cap)
			}
		}
	}
}

func TestSizeHaltedProducesNothing(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res := e.Size(testProposal("1.0"), testContext(model.BreakerHalted))

	if !res.Dropped {
		t.Fatalf("expected drop at halted, got intent with notional %s", res.Intent.Notional)
	}
}

func TestSizeReducedIsExactlyHalfOfNormal(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Identical contexts except the breaker level, as after crossing the
	// first drawdown threshold. Low conviction keeps both below the cap so
	// the ratio is visible.
	normal := e.Size(testProposal("0.1"), testContext(model.BreakerNormal))
	reduced := e.Size(testProposal("0.1"), testContext(model.BreakerReduced))

	if normal.Dropped || reduced.Dropped {
		t.Fatalf("unexpected drop: normal=%v reduced=%v", normal.Reason, reduced.Reason)
	}
	if !reduced.Intent.Notional.Mul(decimal.NewFromInt(2)).Equal(normal.Intent.Notional) {
		t.Fatalf("reduced notional %s is not half of normal %s",
			reduced.Intent.Notional, normal.Intent.Notional)
	}
	if !reduced.Intent.RiskBudget.Mul(decimal.NewFromInt(2)).Equal(normal.Intent.RiskBudget) {
		t.Fatalf("reduced risk budget %s is not half of normal %s",
			reduced.Intent.RiskBudget, normal.Intent.RiskBudget)
	}
}

func TestSizeDropsBelowBrokerMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinOrderUSD = decimal.RequireFromString("100")
	e := NewEngine(cfg)

	dc := testContext(model.BreakerNormal)
	dc.Account.PortfolioValue = decimal.RequireFromString("100")

	res := e.Size(testProposal("0.1"), dc)
	if !res.Dropped {
		t.Fatalf("expected drop below minimum, got notional %s", res.Intent.Notional)
	}
}

func TestSizeDropsWithoutVolatilityEstimate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	dc := testContext(model.BreakerNormal)
	delete(dc.Volatility, "AAPL")

	res := e.Size(testProposal("0.8"), dc)
	if !res.Dropped {
		t.Fatal("expected drop when volatility is unknown")
	}
}

func TestSizeShortProposalSells(t *testing.T) {
	e := NewEngine(DefaultConfig())
	p := testProposal("0.5")
	p.Direction = model.DirectionShort

	res := e.Size(p, testContext(model.BreakerNormal))
	if res.Dropped {
		t.Fatalf("unexpected drop: %s", res.Reason)
	}
	if res.Intent.Side != model.SideSell {
		t.Fatalf("side %s, expected sell for short proposal", res.Intent.Side)
	}
}
