package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// Scanner runs one full scan and records what it finds.
type Scanner interface {
	Scan(ctx context.Context) ([]domain.ArbitrageOpportunity, error)
}

// DetectorConfig configures the detector.
type DetectorConfig struct {
	Scanner Scanner
	// Bus, when set, triggers a scan on every ch:market message.
	Bus domain.SignalBus
	// Interval is the scan period when no market messages arrive.
	Interval time.Duration
	// MinGap debounces bursts of market messages.
	MinGap time.Duration
	Logger *slog.Logger
}

// Detector runs the scanner on an interval and on market updates. A failed
// scan is logged and the loop carries on.
type Detector struct {
	scanner  Scanner
	bus      domain.SignalBus
	interval time.Duration
	minGap   time.Duration
	logger   *slog.Logger
	lastScan time.Time
}

// NewDetector creates a detector.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.MinGap <= 0 {
		cfg.MinGap = 2 * time.Second
	}
	return &Detector{
		scanner:  cfg.Scanner,
		bus:      cfg.Bus,
		interval: cfg.Interval,
		minGap:   cfg.MinGap,
		logger:   cfg.Logger.With(slog.String("component", "arb_detector")),
	}
}

// Run blocks until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	var updates <-chan domain.BusMessage
	if d.bus != nil {
		ch, err := d.bus.Subscribe(ctx, domain.ChannelMarket)
		if err != nil {
			return fmt.Errorf("arb detector: subscribe %s: %w", domain.ChannelMarket, err)
		}
		updates = ch
	}

	d.logger.Info("arb detector started", slog.Duration("interval", d.interval))
	defer d.logger.Info("arb detector stopped")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.scan(ctx)
		case _, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if time.Since(d.lastScan) >= d.minGap {
				d.scan(ctx)
			}
		}
	}
}

func (d *Detector) scan(ctx context.Context) {
	d.lastScan = time.Now()
	opps, err := d.scanner.Scan(ctx)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		d.logger.Debug("arb detector: another scanner holds the lock")
	case err != nil && ctx.Err() == nil:
		d.logger.Warn("arb detector: scan failed", slog.String("error", err.Error()))
	case len(opps) > 0:
		d.logger.Info("arb detector: scan complete", slog.Int("opportunities", len(opps)))
	}
}
