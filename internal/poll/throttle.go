// Package poll implements the polling primitives shared by every data feed: a
// per-domain throttle gate, a TTL cache, a topic subscriber registry, a
// supervised poller and reconnect backoff.
package poll

import (
	"sync"
	"time"
)

// Gate rejects fetches for a domain until its minimum interval has elapsed
// since the previous attempt. Rejected calls are dropped, never queued.
type Gate struct {
	mu        sync.Mutex
	min       time.Duration
	intervals map[string]time.Duration
	last      map[string]time.Time
	now       func() time.Time
}

// NewGate creates a Gate whose default minimum interval is min.
func NewGate(min time.Duration) *Gate {
	return &Gate{
		min:       min,
		intervals: make(map[string]time.Duration),
		last:      make(map[string]time.Time),
		now:       time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
	return g
}

// SetInterval overrides the minimum interval for one domain.
func (g *Gate) SetInterval(domain string, d time.Duration) {
	g.mu.Lock()
	g.intervals[domain] = d
	g.mu.Unlock()
}

// Allow reports whether a fetch for domain may proceed now. When it returns
// true the attempt is recorded, whether or not the fetch later succeeds.
func (g *Gate) Allow(domain string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	interval := g.min
	if d, ok := g.intervals[domain]; ok {
		interval = d
	}
	if last, ok := g.last[domain]; ok && now.Sub(last) < interval {
		return false
	}
	g.last[domain] = now
	return true
}

// Last returns the time of the last allowed attempt for domain.
func (g *Gate) Last(domain string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.last[domain]
	return t, ok
}

// Reset forgets the last attempt for domain so the next Allow passes.
func (g *Gate) Reset(domain string) {
	g.mu.Lock()
	delete(g.last, domain)
	g.mu.Unlock()
}
