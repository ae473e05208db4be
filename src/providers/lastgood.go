package providers

import (
	"sync"
	"time"

	"tradeorchestrator/src/model"
)

// LastKnownGood keeps the most recent successful output per provider so a
// transient provider failure degrades to slightly stale proposals instead of
// none. Entries older than maxAge are treated as absent.
type LastKnownGood struct {
	mu     sync.Mutex
	byName map[string]lastGoodEntry
	maxAge time.Duration
	now    func() time.Time
}

type lastGoodEntry struct {
	proposals []model.Proposal
	storedAt  time.Time
}

func NewLastKnownGood(maxAge time.Duration) *LastKnownGood {
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	return &LastKnownGood{
		byName: make(map[string]lastGoodEntry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Store records a provider's successful output.
func (l *LastKnownGood) Store(provider string, proposals []model.Proposal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byName[provider] = lastGoodEntry{proposals: proposals, storedAt: l.now()}
}

// Get returns the last stored output if it is still fresh enough to act on.
func (l *LastKnownGood) Get(provider string) ([]model.Proposal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byName[provider]
	if !ok {
		return nil, false
	}
	if l.now().Sub(entry.storedAt) > l.maxAge {
		return nil, false
	}
	return entry.proposals, true
}
