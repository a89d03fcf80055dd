package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// FetchFunc produces one fresh value for a poller's domain.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Mode is the poller's supervision state.
type Mode int

const (
	// ModePolling fetches on the regular interval.
	ModePolling Mode = iota
	// ModeReconnecting has given up on regular polling after MaxRetries
	// consecutive failures and retries on ReconnectInterval instead.
	ModeReconnecting
)

func (m Mode) String() string {
	if m == ModeReconnecting {
		return "reconnecting"
	}
	return "polling"
}

// MarshalText lets Mode render as a string in JSON status payloads.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Config holds the timing parameters of one poller.
type Config struct {
	// Domain names the data set; it keys the gate, the cache and the topic.
	Domain string
	// MinInterval is the throttle floor between two attempts.
	MinInterval time.Duration
	// Interval is the regular polling period.
	Interval time.Duration
	// MaxRetries consecutive failures switch the poller to reconnect mode.
	// Zero disables the escalation.
	MaxRetries int
	// ReconnectInterval is the fixed delay between reconnect attempts.
	ReconnectInterval time.Duration
	// TTL bounds how long a cached value stays readable.
	TTL time.Duration
	// StopOnIdle tears the poller down when its last subscriber leaves.
	StopOnIdle bool
}

// State is a snapshot of a poller's supervision counters.
type State struct {
	Domain      string    `json:"domain"`
	Mode        Mode      `json:"mode"`
	Failures    int       `json:"failures"`
	Fetches     int64     `json:"fetches"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Stopped     bool      `json:"stopped"`
}

// Poller runs a fetch function for one domain behind the shared Gate. On
// success it writes the Cache and broadcasts on the Registry.
type Poller[V any] struct {
	cfg    Config
	fetch  FetchFunc[V]
	gate   *Gate
	cache  *Cache[V]
	subs   *Registry[V]
	logger *slog.Logger

	mu          sync.Mutex
	mode        Mode
	failures    int
	fetches     int64
	lastSuccess time.Time
	lastErr     error
	stopped     bool
	gen         uint64
	done        chan struct{}
}

// NewPoller wires a poller. gate, cache and subs are usually shared between
// every poller owned by the same service.
func NewPoller[V any](cfg Config, fetch FetchFunc[V], gate *Gate, cache *Cache[V], subs *Registry[V], logger *slog.Logger) *Poller[V] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 4 * cfg.Interval
	}
	if cfg.MinInterval > 0 {
		gate.SetInterval(cfg.Domain, cfg.MinInterval)
	}

	p := &Poller[V]{
		cfg:    cfg,
		fetch:  fetch,
		gate:   gate,
		cache:  cache,
		subs:   subs,
		logger: logger.With(slog.String("component", "poller"), slog.String("domain", cfg.Domain)),
		done:   make(chan struct{}),
	}
	if cfg.StopOnIdle {
		subs.OnIdle(cfg.Domain, p.Stop)
	}
	return p
}

// Domain returns the poller's domain key.
func (p *Poller[V]) Domain() string { return p.cfg.Domain }

// Subscribe registers fn for this poller's results.
func (p *Poller[V]) Subscribe(fn Subscriber[V]) func() {
	return p.subs.Subscribe(p.cfg.Domain, fn)
}

// Latest returns the cached value for this domain, if still fresh.
func (p *Poller[V]) Latest() (V, bool) {
	return p.cache.Get(p.cfg.Domain)
}

// State returns the current supervision counters.
func (p *Poller[V]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{
		Domain:      p.cfg.Domain,
		Mode:        p.mode,
		Failures:    p.failures,
		Fetches:     p.fetches,
		LastSuccess: p.lastSuccess,
		Stopped:     p.stopped,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	return st
}

// Poll performs one gated fetch. It reports whether a fetch actually ran. In
// reconnect mode regular polls are skipped; only Reconnect may fetch.
func (p *Poller[V]) Poll(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false, domain.ErrPollerStopped
	}
	if p.mode == ModeReconnecting {
		p.mu.Unlock()
		return false, nil
	}
	p.mu.Unlock()

	if !p.gate.Allow(p.cfg.Domain) {
		return false, nil
	}
	return true, p.attempt(ctx)
}

// Reconnect performs one ungated attempt. On success the poller returns to
// regular polling with its failure counter reset.
func (p *Poller[V]) Reconnect(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return domain.ErrPollerStopped
	}
	p.mu.Unlock()

	err := p.attempt(ctx)
	if err == nil {
		p.logger.InfoContext(ctx, "reconnected, resuming regular polling")
	}
	return err
}

func (p *Poller[V]) attempt(ctx context.Context) error {
	p.mu.Lock()
	gen := p.gen
	p.fetches++
	p.mu.Unlock()

	v, err := p.fetch(ctx)

	p.mu.Lock()
	if p.stopped || p.gen != gen {
		// Torn down while the fetch was in flight; drop the result.
		p.mu.Unlock()
		return domain.ErrPollerStopped
	}
	if err != nil {
		p.failures++
		p.lastErr = err
		escalated := false
		if p.cfg.MaxRetries > 0 && p.failures >= p.cfg.MaxRetries && p.mode == ModePolling {
			p.mode = ModeReconnecting
			escalated = true
		}
		failures := p.failures
		p.mu.Unlock()

		p.logger.WarnContext(ctx, "fetch failed",
			slog.Int("failures", failures),
			slog.String("error", err.Error()),
		)
		if escalated {
			p.logger.WarnContext(ctx, "max retries reached, switching to reconnect loop",
				slog.Int("max_retries", p.cfg.MaxRetries),
				slog.Duration("reconnect_interval", p.cfg.ReconnectInterval),
			)
		}
		return fmt.Errorf("poll: fetch %s: %w", p.cfg.Domain, err)
	}
	p.failures = 0
	p.mode = ModePolling
	p.lastErr = nil
	p.lastSuccess = time.Now()
	p.mu.Unlock()

	p.cache.Set(p.cfg.Domain, v, p.cfg.TTL)
	// Subscriber failures are isolated and already logged by the registry.
	_ = p.subs.Broadcast(p.cfg.Domain, v)
	return nil
}

// Run polls immediately and then on Interval, switching to ReconnectInterval
// while in reconnect mode. It returns when ctx is cancelled or Stop is called.
func (p *Poller[V]) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return domain.ErrPollerStopped
	}
	done := p.done
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "poller started",
		slog.Duration("interval", p.cfg.Interval),
		slog.Int("max_retries", p.cfg.MaxRetries),
	)

	_, _ = p.Poll(ctx)

	for {
		wait := p.cfg.Interval
		reconnecting := p.State().Mode == ModeReconnecting
		if reconnecting {
			wait = p.cfg.ReconnectInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-done:
			timer.Stop()
			p.logger.InfoContext(ctx, "poller stopped")
			return nil
		case <-timer.C:
		}

		if reconnecting {
			_ = p.Reconnect(ctx)
		} else {
			_, _ = p.Poll(ctx)
		}
	}
}

// Stop ends Run and discards any fetch still in flight. It is idempotent.
func (p *Poller[V]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.gen++
	close(p.done)
}
