package aggregator

import (
	"sort"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// Aggregate merges the proposals of concurrently-invoked providers into at
// most one proposal per symbol. Resolution rules, in order:
//
//  1. direction conflict on a symbol: keep only the highest-conviction
//     proposal, discard the rest (never net long and short)
//  2. agreement on direction: keep the highest conviction, no summation,
//     so correlated providers cannot compound each other's errors
//  3. symbols already at a broker-reported position cap are dropped
//     regardless of conviction
//
// Deterministic: ties break on provider name, then earlier timestamp.
func Aggregate(proposals []model.Proposal, atPositionCap map[string]bool) []model.Proposal {
	bySymbol := make(map[string][]model.Proposal)
	for _, p := range proposals {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]model.Proposal, 0, len(symbols))
	for _, symbol := range symbols {
		if atPositionCap[symbol] {
			logger.WithField("symbol", symbol).
				Info("symbol at position cap, dropping all proposals")
			continue
		}

		group := bySymbol[symbol]
		winner := pickWinner(group)

		if conflicting(group) {
			logger.WithFields(map[string]interface{}{
				"symbol":    symbol,
				"proposals": len(group),
				"kept":      winner.Source,
				"direction": winner.Direction,
			}).Warn("conflicting directions on symbol, keeping highest conviction")
		}

		out = append(out, winner)
	}
	return out
}

func pickWinner(group []model.Proposal) model.Proposal {
	winner := group[0]
	for _, p := range group[1:] {
		switch {
		case p.Conviction.GreaterThan(winner.Conviction):
			winner = p
		case p.Conviction.Equal(winner.Conviction):
			if p.Source < winner.Source ||
				(p.Source == winner.Source && p.EmittedAt.Before(winner.EmittedAt)) {
				winner = p
			}
		}
	}
	return winner
}

func conflicting(group []model.Proposal) bool {
	for _, p := range group[1:] {
		if p.Direction != group[0].Direction {
			return true
		}
	}
	return false
}
