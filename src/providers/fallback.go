package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

const FallbackName = "rule_fallback"

var (
	fallbackConviction = decimal.RequireFromString("0.3")
	two                = decimal.NewFromInt(2)
)

// RuleFallback is the conservative substitute used when a real provider times
// out or fails and no recent output is available. It proposes a low-conviction
// continuation of the prevailing trend: close above the midpoint of the recent
// range means long, below means nothing at all. It never proposes shorts and
// never proposes in a volatile regime.
type RuleFallback struct {
	lookback int
	now      func() time.Time
}

func NewRuleFallback() *RuleFallback {
	return &RuleFallback{lookback: 20, now: time.Now}
}

func (f *RuleFallback) Name() string { return FallbackName }

func (f *RuleFallback) Propose(ctx context.Context, dc model.DecisionContext) ([]model.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dc.Regime == model.RegimeVolatile || dc.Regime == model.RegimeBear {
		return nil, nil
	}

	var out []model.Proposal
	for symbol, bars := range dc.RecentBars {
		if len(bars) < f.lookback {
			continue
		}
		window := bars[len(bars)-f.lookback:]

		low := window[0].Low
		high := window[0].High
		for _, b := range window[1:] {
			if b.Low.LessThan(low) {
				low = b.Low
			}
			if b.High.GreaterThan(high) {
				high = b.High
			}
		}

		mid := low.Add(high).Div(two)
		last := window[len(window)-1].Close
		if last.LessThanOrEqual(mid) {
			continue
		}

		p, err := model.NewProposal(
			symbol,
			assetClassFor(dc, symbol),
			model.DirectionLong,
			"close above midpoint of recent range",
			FallbackName,
			fallbackConviction,
			f.now(),
		)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func assetClassFor(dc model.DecisionContext, symbol string) string {
	if pos, ok := dc.PositionFor(symbol); ok {
		return pos.AssetClass
	}
	return model.AssetClassEquity
}
