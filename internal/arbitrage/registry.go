package arbitrage

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named strategies so config can enable a subset.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns a registry holding strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds s under its own name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Select returns the strategies named, in that order. An empty list selects
// every registered strategy.
func (r *Registry) Select(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = r.List()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, ok := r.strategies[n]
		if !ok {
			return nil, fmt.Errorf("arbitrage: strategy %q not found", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// List returns all registered strategy names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
