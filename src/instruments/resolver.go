package instruments

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/model"
)

// Store is the persisted layer of the cache. Implemented by
// repository.InstrumentRepository; kept as an interface so the resolver is
// testable without a database.
type Store interface {
	FindBySymbol(ctx context.Context, brokerName, symbol string) (*model.InstrumentCacheEntry, error)
	Upsert(ctx context.Context, entry *model.InstrumentCacheEntry) error
}

// BackendResolver is the broker-side resolution call. ResolveBatch may be
// answered symbol-by-symbol by backends without a batch endpoint.
type BackendResolver interface {
	ResolveInstrument(ctx context.Context, symbol string) (brokerID, assetClass string, err error)
	ResolveInstrumentBatch(ctx context.Context, symbols []string) (map[string]string, error)
}

// Resolver maps symbols to broker-specific instrument ids through three
// layers: in-memory map, persisted store, backend endpoint. Entries expire
// after a TTL and are re-resolved on the next request.
type Resolver struct {
	brokerName string
	store      Store
	backend    BackendResolver
	ttl        time.Duration

	mu  sync.Mutex
	mem map[string]model.InstrumentCacheEntry

	now func() time.Time
}

func NewResolver(brokerName string, store Store, backend BackendResolver, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Resolver{
		brokerName: brokerName,
		store:      store,
		backend:    backend,
		ttl:        ttl,
		mem:        make(map[string]model.InstrumentCacheEntry),
		now:        time.Now,
	}
}

// Resolve returns the broker instrument id for a symbol, populating both
// cache layers on a miss. Within the TTL at most one backend call is made
// per symbol.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (string, error) {
	now := r.now()

	r.mu.Lock()
	if entry, ok := r.mem[symbol]; ok && !entry.Expired(now) {
		r.mu.Unlock()
		return entry.BrokerID, nil
	}
	r.mu.Unlock()

	if r.store != nil {
		entry, err := r.store.FindBySymbol(ctx, r.brokerName, symbol)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).
				Warn("instrument store lookup failed, falling through to backend")
		} else if entry != nil && !entry.Expired(now) {
			r.remember(*entry)
			return entry.BrokerID, nil
		}
	}

	brokerID, assetClass, err := r.backend.ResolveInstrument(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("%w: %s on %s: %v", broker.ErrInstrumentNotResolvable, symbol, r.brokerName, err)
	}

	entry := model.InstrumentCacheEntry{
		Broker:     r.brokerName,
		Symbol:     symbol,
		AssetClass: assetClass,
		BrokerID:   brokerID,
		ResolvedAt: now,
		TTLSeconds: int64(r.ttl / time.Second),
	}
	r.remember(entry)

	if r.store != nil {
		if err := r.store.Upsert(ctx, &entry); err != nil {
			logger.WithError(err).WithField("symbol", symbol).
				Warn("failed to persist instrument cache entry")
		}
	}

	return brokerID, nil
}

// ResolveBatch resolves N symbols, using one backend round trip for all
// cache misses where the backend supports it.
func (r *Resolver) ResolveBatch(ctx context.Context, symbols []string) (map[string]string, error) {
	now := r.now()
	out := make(map[string]string, len(symbols))
	var misses []string

	r.mu.Lock()
	for _, s := range symbols {
		if entry, ok := r.mem[s]; ok && !entry.Expired(now) {
			out[s] = entry.BrokerID
		} else {
			misses = append(misses, s)
		}
	}
	r.mu.Unlock()

	if len(misses) == 0 {
		return out, nil
	}

	resolved, err := r.backend.ResolveInstrumentBatch(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("%w: batch of %d on %s: %v", broker.ErrInstrumentNotResolvable, len(misses), r.brokerName, err)
	}

	for symbol, brokerID := range resolved {
		entry := model.InstrumentCacheEntry{
			Broker:     r.brokerName,
			Symbol:     symbol,
			BrokerID:   brokerID,
			ResolvedAt: now,
			TTLSeconds: int64(r.ttl / time.Second),
		}
		r.remember(entry)
		if r.store != nil {
			if err := r.store.Upsert(ctx, &entry); err != nil {
				logger.WithError(err).WithField("symbol", symbol).
					Warn("failed to persist instrument cache entry")
			}
		}
		out[symbol] = brokerID
	}

	for _, s := range misses {
		if _, ok := out[s]; !ok {
			return nil, fmt.Errorf("%w: %s on %s", broker.ErrInstrumentNotResolvable, s, r.brokerName)
		}
	}

	return out, nil
}

func (r *Resolver) remember(entry model.InstrumentCacheEntry) {
	r.mu.Lock()
	r.mem[entry.Symbol] = entry
	r.mu.Unlock()
}

// Invalidate drops a symbol from the in-memory layer, forcing re-resolution.
func (r *Resolver) Invalidate(symbol string) {
	r.mu.Lock()
	delete(r.mem, symbol)
	r.mu.Unlock()
}
