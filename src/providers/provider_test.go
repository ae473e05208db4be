package providers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

func barsTrendingUp(n int) []model.Bar {
	bars := make([]model.Bar, 0, n)
	ts := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		px := decimal.NewFromInt(int64(100 + i))
		bars = append(bars, model.Bar{
			Symbol: "AAPL", Timestamp: ts.Add(time.Duration(i) * time.Minute),
			Open: px, High: px.Add(decimal.NewFromInt(1)), Low: px.Sub(decimal.NewFromInt(1)), Close: px,
			Volume: decimal.NewFromInt(1000),
		})
	}
	return bars
}

func TestRuleFallbackProposesLongOnUptrend(t *testing.T) {
	f := NewRuleFallback()
	dc := model.DecisionContext{
		Regime:     model.RegimeBull,
		RecentBars: map[string][]model.Bar{"AAPL": barsTrendingUp(30)},
	}

	proposals, err := f.Propose(context.Background(), dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(proposals))
	}
	p := proposals[0]
	if p.Direction != model.DirectionLong {
		t.Fatalf("fallback proposed %s, expected long", p.Direction)
	}
	if !p.Conviction.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("fallback conviction %s, expected 0.3", p.Conviction)
	}
}

func TestRuleFallbackSilentInVolatileRegime(t *testing.T) {
	f := NewRuleFallback()
	dc := model.DecisionContext{
		Regime:     model.RegimeVolatile,
		RecentBars: map[string][]model.Bar{"AAPL": barsTrendingUp(30)},
	}

	proposals, err := f.Propose(context.Background(), dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("expected no proposals in volatile regime, got %d", len(proposals))
	}
}

func TestLastKnownGoodExpiry(t *testing.T) {
	lkg := NewLastKnownGood(10 * time.Minute)
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	lkg.now = func() time.Time { return base }

	lkg.Store("alpha", []model.Proposal{{Symbol: "AAPL"}})

	if got, ok := lkg.Get("alpha"); !ok || len(got) != 1 {
		t.Fatalf("expected fresh entry to be returned, got ok=%v len=%d", ok, len(got))
	}

	lkg.now = func() time.Time { return base.Add(11 * time.Minute) }
	if _, ok := lkg.Get("alpha"); ok {
		t.Fatal("expected stale entry to be treated as absent")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	name := "test_dupe_provider"
	ctor := func(map[string]string) (Provider, error) { return NewRuleFallback(), nil }

	if err := Register(name, ctor); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := Register(name, ctor); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
