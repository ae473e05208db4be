package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Proposal is a directional trade idea emitted by an analysis provider.
// It carries a conviction score, never a position size; sizing is done
// exclusively by the sizing engine. Immutable once emitted.
type Proposal struct {
	Symbol     string          `json:"symbol"`
	AssetClass string          `json:"asset_class"`
	Direction  string          `json:"direction"` // long, short
	Conviction decimal.Decimal `json:"conviction"`
	Rationale  string          `json:"rationale"`
	Source     string          `json:"source"`
	EmittedAt  time.Time       `json:"emitted_at"`
}

// NewProposal validates provider output once at the boundary. Anything that
// fails here is dropped before it can reach the sizing pipeline.
func NewProposal(symbol, assetClass, direction, rationale, source string, conviction decimal.Decimal, emittedAt time.Time) (Proposal, error) {
	if symbol == "" {
		return Proposal{}, fmt.Errorf("proposal missing symbol")
	}
	if direction != DirectionLong && direction != DirectionShort {
		return Proposal{}, fmt.Errorf("proposal %s has invalid direction %q", symbol, direction)
	}
	if conviction.LessThan(decimal.Zero) || conviction.GreaterThan(decimal.NewFromInt(1)) {
		return Proposal{}, fmt.Errorf("proposal %s conviction %s outside [0,1]", symbol, conviction)
	}
	if source == "" {
		return Proposal{}, fmt.Errorf("proposal %s missing source provider", symbol)
	}
	if assetClass == "" {
		assetClass = AssetClassEquity
	}

	return Proposal{
		Symbol:     symbol,
		AssetClass: assetClass,
		Direction:  direction,
		Conviction: conviction,
		Rationale:  rationale,
		Source:     source,
		EmittedAt:  emittedAt,
	}, nil
}
