package wallet

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// Registry holds the installed wallet connectors by lower-cased name.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]domain.WalletConnector
}

// NewRegistry creates a Registry with the given connectors.
func NewRegistry(connectors ...domain.WalletConnector) *Registry {
	r := &Registry{connectors: make(map[string]domain.WalletConnector)}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a connector.
func (r *Registry) Register(c domain.WalletConnector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[strings.ToLower(c.Name())] = c
}

// Get looks a connector up by name.
func (r *Registry) Get(name string) (domain.WalletConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrWalletNotFound, name)
	}
	return c, nil
}

// Names lists the registered wallets, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.connectors))
	for n := range r.connectors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
