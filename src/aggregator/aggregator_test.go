package aggregator

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

func proposal(symbol, direction, source string, conviction string) model.Proposal {
	return model.Proposal{
		Symbol:     symbol,
		Direction:  direction,
		Source:     source,
		Conviction: decimal.RequireFromString(conviction),
		EmittedAt:  time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestAggregateDirectionConflictKeepsHighestConviction(t *testing.T) {
	got := Aggregate([]model.Proposal{
		proposal("AAPL", model.DirectionLong, "alpha", "0.6"),
		proposal("AAPL", model.DirectionShort, "beta", "0.8"),
		proposal("AAPL", model.DirectionLong, "gamma", "0.5"),
	}, nil)

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 proposal, got %d", len(got))
	}
	if got[0].Direction != model.DirectionShort || got[0].Source != "beta" {
		t.Fatalf("expected beta's short to win, got %s from %s", got[0].Direction, got[0].Source)
	}
}

func TestAggregateAgreementNoSummation(t *testing.T) {
	got := Aggregate([]model.Proposal{
		proposal("MSFT", model.DirectionLong, "alpha", "0.4"),
		proposal("MSFT", model.DirectionLong, "beta", "0.7"),
	}, nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(got))
	}
	// Conviction is the winner's, never a sum of agreeing providers.
	if !got[0].Conviction.Equal(decimal.RequireFromString("0.7")) {
		t.Fatalf("expected conviction 0.7, got %s", got[0].Conviction)
	}
}

func TestAggregateDropsSymbolsAtPositionCap(t *testing.T) {
	got := Aggregate([]model.Proposal{
		proposal("NVDA", model.DirectionLong, "alpha", "0.99"),
		proposal("AMD", model.DirectionLong, "alpha", "0.2"),
	}, map[string]bool{"NVDA": true})

	if len(got) != 1 {
		t.Fatalf("expected 1 proposal after cap drop, got %d", len(got))
	}
	if got[0].Symbol != "AMD" {
		t.Fatalf("expected AMD to survive, got %s", got[0].Symbol)
	}
}

func TestAggregateDeterministicTieBreak(t *testing.T) {
	input := []model.Proposal{
		proposal("TSLA", model.DirectionLong, "zeta", "0.5"),
		proposal("TSLA", model.DirectionShort, "alpha", "0.5"),
	}

	first := Aggregate(input, nil)
	for i := 0; i < 10; i++ {
		again := Aggregate(input, nil)
		if again[0].Source != first[0].Source {
			t.Fatalf("tie break not deterministic: %s vs %s", again[0].Source, first[0].Source)
		}
	}
	if first[0].Source != "alpha" {
		t.Fatalf("expected alphabetical tie break, got %s", first[0].Source)
	}
}

// Property: for any random proposal set, output has at most one proposal per
// symbol, and for every symbol with conflicting directions the winner matches
// the highest-conviction input.
func TestAggregateConflictProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"A", "B", "C", "D"}
	directions := []string{model.DirectionLong, model.DirectionShort}

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(12) + 1
		input := make([]model.Proposal, 0, n)
		for i := 0; i < n; i++ {
			input = append(input, proposal(
				symbols[rng.Intn(len(symbols))],
				directions[rng.Intn(2)],
				fmt.Sprintf("p%d", i),
				fmt.Sprintf("0.%02d", rng.Intn(99)+1),
			))
		}

		got := Aggregate(input, nil)

		seen := map[string]bool{}
		for _, p := range got {
			if seen[p.Symbol] {
				t.Fatalf("iter %d: duplicate symbol %s in output", iter, p.Symbol)
			}
			seen[p.Symbol] = true

			max := decimal.Zero
			for _, in := range input {
				if in.Symbol == p.Symbol && in.Conviction.GreaterThan(max) {
					max = in.Conviction
				}
			}
			if !p.Conviction.Equal(max) {
				t.Fatalf("iter %d: symbol %s winner conviction %s != max %s",
					iter, p.Symbol, p.Conviction, max)
			}
		}
	}
}
