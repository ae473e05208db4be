package risk

import (
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// Gate applies the hard portfolio constraints to sized intents. It is the
// final authority before execution: every intent gets exactly one verdict,
// and only approve or reduce verdicts may reach a broker.
type Gate struct {
	cfg     Config
	breaker *CircuitBreaker
	now     func() time.Time
}

func NewGate(cfg Config, breaker *CircuitBreaker) *Gate {
	return &Gate{cfg: cfg, breaker: breaker, now: time.Now}
}

// Evaluate rules on one intent against the decision context. The constraints,
// in order of precedence:
//
//  1. HALTED breaker rejects all risk-increasing intents; reduce-only passes
//  2. naked short entries require a hedge, which is not supported yet, so
//     the verdict is require_hedge and the intent does not execute
//  3. cash reserve floor: the order may not push cash below the reserve
//  4. per-symbol exposure cap: reduce to fit, reject if no headroom
//  5. per-asset-class exposure cap: reduce to fit, reject if no headroom
//
// A reduce verdict carries the adjusted notional and quantity; the executor
// must use those, never the intent's originals.
func (g *Gate) Evaluate(intent model.SizedOrderIntent, dc model.DecisionContext) model.RiskGateVerdict {
	level := g.breaker.Level()
	verdict := model.RiskGateVerdict{
		IntentID:         intent.IntentID,
		Outcome:          model.VerdictApprove,
		AdjustedNotional: intent.Notional,
		AdjustedQuantity: intent.Quantity,
		BreakerLevel:     level,
		IssuedAt:         g.now(),
	}

	if intent.ReduceOnly {
		// Risk-reducing intents pass at every breaker level.
		return verdict
	}

	if level == model.BreakerHalted {
		return g.reject(verdict, "portfolio halted, no new risk accepted")
	}

	if intent.Side == model.SideSell {
		if _, held := dc.PositionFor(intent.Symbol); !held {
			verdict.Outcome = model.VerdictRequireHedge
			verdict.Reason = "naked short requires a hedge leg"
			verdict.AdjustedNotional = decimal.Zero
			verdict.AdjustedQuantity = decimal.Zero
			return verdict
		}
	}

	pv := dc.Account.PortfolioValue
	if pv.LessThanOrEqual(decimal.Zero) {
		return g.reject(verdict, "portfolio value not positive")
	}

	notional := intent.Notional

	// Cash reserve floor applies to buys only; sells free cash.
	if intent.Side == model.SideBuy {
		reserve := g.cfg.MinCashReservePct.Mul(pv)
		spendable := dc.Account.Cash.Sub(reserve)
		if spendable.LessThanOrEqual(decimal.Zero) {
			return g.reject(verdict, "cash reserve floor reached")
		}
		if notional.GreaterThan(spendable) {
			notional = spendable
		}
	}

	// Per-symbol cap over existing exposure plus this order.
	symbolHeadroom := g.cfg.MaxSymbolPct.Sub(dc.ExposurePct(intent.Symbol)).Mul(pv)
	if symbolHeadroom.LessThanOrEqual(decimal.Zero) {
		return g.reject(verdict, "symbol exposure cap reached")
	}
	if notional.GreaterThan(symbolHeadroom) {
		notional = symbolHeadroom
	}

	// Per-asset-class cap.
	classHeadroom := g.cfg.MaxAssetClassPct.Sub(g.classExposurePct(intent.Proposal.AssetClass, dc)).Mul(pv)
	if classHeadroom.LessThanOrEqual(decimal.Zero) {
		return g.reject(verdict, "asset class exposure cap reached")
	}
	if notional.GreaterThan(classHeadroom) {
		notional = classHeadroom
	}

	if notional.LessThan(g.cfg.MinAdjustedUSD) {
		return g.reject(verdict, "adjusted notional below minimum order size")
	}

	if notional.LessThan(intent.Notional) {
		verdict.Outcome = model.VerdictReduce
		verdict.Reason = "reduced to fit portfolio constraints"
		verdict.AdjustedNotional = notional.Round(2)
		verdict.AdjustedQuantity = scaleQuantity(intent, notional)

		logger.WithFields(map[string]interface{}{
			"intent_id": intent.IntentID,
			"symbol":    intent.Symbol,
			"requested": intent.Notional.String(),
			"adjusted":  verdict.AdjustedNotional.String(),
		}).Info("intent reduced by risk gate")
	}

	return verdict
}

func (g *Gate) reject(v model.RiskGateVerdict, reason string) model.RiskGateVerdict {
	logger.WithFields(map[string]interface{}{
		"intent_id": v.IntentID,
		"reason":    reason,
	}).Info("intent rejected by risk gate")

	v.Outcome = model.VerdictReject
	v.Reason = reason
	v.AdjustedNotional = decimal.Zero
	v.AdjustedQuantity = decimal.Zero
	return v
}

// SymbolsAtCap lists the symbols whose exposure already meets the per-symbol
// cap, so the aggregator can drop their proposals before sizing runs.
func (g *Gate) SymbolsAtCap(dc model.DecisionContext) map[string]bool {
	atCap := map[string]bool{}
	for _, pos := range dc.Positions {
		if dc.ExposurePct(pos.Symbol).GreaterThanOrEqual(g.cfg.MaxSymbolPct) {
			atCap[pos.Symbol] = true
		}
	}
	return atCap
}

func (g *Gate) classExposurePct(assetClass string, dc model.DecisionContext) decimal.Decimal {
	if assetClass == "" {
		assetClass = model.AssetClassEquity
	}
	total := decimal.Zero
	for _, p := range dc.Positions {
		if p.AssetClass == assetClass {
			total = total.Add(p.MarketValue.Abs())
		}
	}
	return total.Div(dc.Account.PortfolioValue)
}

func scaleQuantity(intent model.SizedOrderIntent, adjusted decimal.Decimal) decimal.Decimal {
	if intent.Quantity.IsZero() || intent.Notional.IsZero() {
		return decimal.Zero
	}
	return intent.Quantity.Mul(adjusted).Div(intent.Notional).RoundDown(4)
}
