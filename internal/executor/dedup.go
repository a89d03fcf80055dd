package executor

import (
	"sync"
	"time"
)

// Dedup rejects an opportunity that was already executed within ttl. It is
// safe for concurrent use.
type Dedup struct {
	seen  map[string]time.Time // opportunity id -> first execution
	ttl   time.Duration
	now   func() time.Time
	swept time.Time
	mu    sync.Mutex
}

// NewDedup creates a Dedup with the given window.
func NewDedup(ttl time.Duration, now func() time.Time) *Dedup {
	if now == nil {
		now = time.Now
	}
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  now,
	}
}

// IsDuplicate reports whether id was seen within the window. An unseen or
// expired id is recorded and false is returned. Expired entries are swept at
// most once per window.
func (d *Dedup) IsDuplicate(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.swept) >= d.ttl {
		d.sweep(now)
	}
	if lastSeen, ok := d.seen[id]; ok && now.Sub(lastSeen) < d.ttl {
		return true
	}
	d.seen[id] = now
	return false
}

// Forget drops id so it can be executed again, used when no leg went through.
func (d *Dedup) Forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Cleanup removes expired entries.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sweep(d.now())
}

// Len returns the number of tracked ids.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Dedup) sweep(now time.Time) {
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
	d.swept = now
}
