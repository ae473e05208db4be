package instruments

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingBackend struct {
	calls      int
	batchCalls int
	ids        map[string]string
}

func (b *countingBackend) ResolveInstrument(_ context.Context, symbol string) (string, string, error) {
	b.calls++
	id, ok := b.ids[symbol]
	if !ok {
		return "", "", errors.New("unknown symbol")
	}
	return id, "future", nil
}

func (b *countingBackend) ResolveInstrumentBatch(_ context.Context, symbols []string) (map[string]string, error) {
	b.batchCalls++
	out := make(map[string]string)
	for _, s := range symbols {
		if id, ok := b.ids[s]; ok {
			out[s] = id
		}
	}
	return out, nil
}

func TestResolverCachesWithinTTL(t *testing.T) {
	backend := &countingBackend{ids: map[string]string{"MESZ5": "12345"}}
	r := NewResolver("tradovate", nil, backend, time.Hour)

	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		id, err := r.Resolve(context.Background(), "MESZ5")
		if err != nil {
			t.Fatalf("unexpected error on resolve %d: %v", i, err)
		}
		if id != "12345" {
			t.Fatalf("unexpected broker id %q", id)
		}
	}

	if backend.calls != 1 {
		t.Fatalf("expected exactly 1 backend call within TTL, got %d", backend.calls)
	}

	// Past expiry exactly one more backend call happens.
	r.now = func() time.Time { return base.Add(2 * time.Hour) }

	if _, err := r.Resolve(context.Background(), "MESZ5"); err != nil {
		t.Fatalf("unexpected error after TTL expiry: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "MESZ5"); err != nil {
		t.Fatalf("unexpected error after TTL refresh: %v", err)
	}

	if backend.calls != 2 {
		t.Fatalf("expected exactly 2 backend calls after expiry, got %d", backend.calls)
	}
}

func TestResolverUnknownSymbol(t *testing.T) {
	backend := &countingBackend{ids: map[string]string{}}
	r := NewResolver("tradovate", nil, backend, time.Hour)

	if _, err := r.Resolve(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected resolution error for unknown symbol")
	}
}

func TestResolverBatchSingleRoundTrip(t *testing.T) {
	backend := &countingBackend{ids: map[string]string{"A": "1", "B": "2", "C": "3"}}
	r := NewResolver("tradovate", nil, backend, time.Hour)

	got, err := r.ResolveBatch(context.Background(), []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 resolved symbols, got %d", len(got))
	}
	if backend.batchCalls != 1 {
		t.Fatalf("expected 1 batch round trip, got %d", backend.batchCalls)
	}

	// All three now served from memory.
	if _, err := r.ResolveBatch(context.Background(), []string{"A", "B", "C"}); err != nil {
		t.Fatalf("unexpected error on cached batch: %v", err)
	}
	if backend.batchCalls != 1 {
		t.Fatalf("expected no extra backend calls for cached batch, got %d", backend.batchCalls)
	}
}
