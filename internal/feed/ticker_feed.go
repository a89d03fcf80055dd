// Package feed keeps the live exchange socket connected and hands its
// updates to the market service.
package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/platform/binance"
	"github.com/alanyoungcy/cardanodash/internal/poll"
)

// stableAfter is how long a connection must stay up before the backoff resets.
const stableAfter = 30 * time.Second

// TickerSource runs one live connection until it fails.
type TickerSource interface {
	RunConnection(ctx context.Context, onTicker binance.TickerHandler) error
}

// TickerFeed reconnects TickerSource with exponential backoff.
type TickerFeed struct {
	source    TickerSource
	onTicker  binance.TickerHandler
	backoff   *poll.Backoff
	logger    *slog.Logger
	connected atomic.Bool
	updates   atomic.Int64
}

// NewTickerFeed creates a feed. base and max bound the reconnect delay.
func NewTickerFeed(source TickerSource, onTicker binance.TickerHandler, base, max time.Duration, logger *slog.Logger) *TickerFeed {
	return &TickerFeed{
		source:   source,
		onTicker: onTicker,
		backoff:  poll.NewBackoff(base, max),
		logger:   logger.With(slog.String("component", "ticker_feed")),
	}
}

// Connected reports whether a connection is currently delivering.
func (f *TickerFeed) Connected() bool { return f.connected.Load() }

// Updates is the total number of ticks delivered.
func (f *TickerFeed) Updates() int64 { return f.updates.Load() }

// Run blocks until ctx is cancelled.
func (f *TickerFeed) Run(ctx context.Context) error {
	for {
		started := time.Now()
		f.logger.InfoContext(ctx, "connecting live ticker", slog.Int("attempt", f.backoff.Attempt()))

		err := f.source.RunConnection(ctx, func(t binance.Ticker) {
			f.connected.Store(true)
			f.updates.Add(1)
			f.onTicker(t)
		})
		f.connected.Store(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) >= stableAfter {
			f.backoff.Reset()
		}

		delay := f.backoff.Next()
		attrs := []any{slog.Duration("retry_in", delay)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		f.logger.WarnContext(ctx, "live ticker disconnected", attrs...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
