package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tradeorchestrator/src/model"
)

// Provider is the contract every analysis provider implements: given a
// decision context, return zero or more proposals within the caller's
// deadline. Providers never mutate state; a failing or absent provider must
// not take the cycle down with it.
type Provider interface {
	Name() string
	Propose(ctx context.Context, dc model.DecisionContext) ([]model.Proposal, error)
}

// Constructor builds a provider from its raw config payload.
type Constructor func(config map[string]string) (Provider, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{}
)

// Register adds a provider constructor under a name. Called from composition
// roots at startup, never from package init side effects.
func Register(name string, ctor Constructor) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	registry[name] = ctor
	return nil
}

// New resolves a registered provider by name.
func New(name string, config map[string]string) (Provider, error) {
	registryMu.Lock()
	ctor, ok := registry[name]
	registryMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("provider %q not registered", name)
	}
	return ctor(config)
}

// Registered lists registered provider names, sorted for stable output.
func Registered() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
