package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/arbitrage"
	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/notify"
)

const scanLockKey = "arbitrage:scan"

// ArbitrageConfig holds the scan filters.
type ArbitrageConfig struct {
	// Strategies names the enabled detection strategies. Empty enables all.
	Strategies    []string
	MinProfitPct  float64
	MinConfidence domain.Confidence
	// LockTTL bounds how long one instance may hold the scan lock.
	LockTTL time.Duration
}

// ArbitrageService scans cached venue quotes for cross-venue gaps and records
// the ones that pass the configured filters.
type ArbitrageService struct {
	cache    domain.MarketCache
	opps     domain.OpportunityStore
	trades   domain.TradeStore
	locks    domain.LockManager
	bus      domain.SignalBus
	auditLog domain.AuditStore
	notifier Notifier
	registry *arbitrage.Registry
	cfg      ArbitrageConfig
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	live map[string]domain.ArbitrageOpportunity // route -> first unexpired sighting
}

var _ arbitrage.Scanner = (*ArbitrageService)(nil)

// NewArbitrageService creates an ArbitrageService. locks, bus, auditLog and
// notifier may be nil.
func NewArbitrageService(
	cache domain.MarketCache,
	opps domain.OpportunityStore,
	trades domain.TradeStore,
	locks domain.LockManager,
	bus domain.SignalBus,
	auditLog domain.AuditStore,
	notifier Notifier,
	registry *arbitrage.Registry,
	cfg ArbitrageConfig,
	logger *slog.Logger,
) *ArbitrageService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.MinConfidence == "" {
		cfg.MinConfidence = domain.ConfidenceLow
	}
	return &ArbitrageService{
		cache:    cache,
		opps:     opps,
		trades:   trades,
		locks:    locks,
		bus:      bus,
		auditLog: auditLog,
		notifier: notifier,
		registry: registry,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "arb_service")),
		now:      time.Now,
		live:     make(map[string]domain.ArbitrageOpportunity),
	}
}

// WithClock overrides the scan clock.
func (s *ArbitrageService) WithClock(now func() time.Time) *ArbitrageService {
	s.now = now
	return s
}

// Scan runs every enabled strategy over every cached pair. Only one instance
// scans at a time; the others get domain.ErrLockHeld. A pair or strategy that
// fails is logged and skipped. A route still covered by an unexpired earlier
// opportunity returns that opportunity and is not recorded again.
func (s *ArbitrageService) Scan(ctx context.Context) ([]domain.ArbitrageOpportunity, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, scanLockKey, s.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("arb_service: scan: %w", err)
		}
		defer unlock()
	}

	strategies, err := s.registry.Select(s.cfg.Strategies)
	if err != nil {
		return nil, fmt.Errorf("arb_service: scan: %w", err)
	}
	pairs, err := s.cache.Pairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("arb_service: scan: pairs: %w", err)
	}

	now := s.now().UTC()
	var found, fresh []domain.ArbitrageOpportunity
	for _, pair := range pairs {
		snaps, err := s.cache.Snapshots(ctx, pair)
		if err != nil {
			s.logger.WarnContext(ctx, "arb_service: snapshots failed",
				slog.String("pair", pair),
				slog.String("error", err.Error()),
			)
			continue
		}
		snaps = domain.LatestSnapshots(snaps)
		if len(snaps) < 2 {
			continue
		}

		for _, strat := range strategies {
			opps, err := strat.Detect(ctx, pair, snaps, now)
			if err != nil {
				s.logger.WarnContext(ctx, "arb_service: detect failed",
					slog.String("pair", pair),
					slog.String("strategy", strat.Name()),
					slog.String("error", err.Error()),
				)
				continue
			}
			for _, opp := range opps {
				if !s.accept(ctx, opp) {
					continue
				}
				if prev, seen := s.remember(opp, now); seen {
					found = append(found, prev)
					continue
				}
				found = append(found, opp)
				fresh = append(fresh, opp)
			}
		}
	}

	for _, opp := range fresh {
		s.record(ctx, opp)
	}
	return found, nil
}

// remember returns the live opportunity on opp's route, or stores opp as the
// live one when there is none.
func (s *ArbitrageService) remember(opp domain.ArbitrageOpportunity, now time.Time) (domain.ArbitrageOpportunity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for route, prev := range s.live {
		if prev.Expired(now) {
			delete(s.live, route)
		}
	}
	route := opp.Route()
	if prev, ok := s.live[route]; ok {
		return prev, true
	}
	s.live[route] = opp
	return opp, false
}

func (s *ArbitrageService) accept(ctx context.Context, opp domain.ArbitrageOpportunity) bool {
	if opp.ProfitPct < s.cfg.MinProfitPct || !opp.Confidence.AtLeast(s.cfg.MinConfidence) {
		return false
	}
	if err := opp.Validate(); err != nil {
		s.logger.WarnContext(ctx, "arb_service: dropping inconsistent opportunity",
			slog.String("pair", opp.Pair),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (s *ArbitrageService) record(ctx context.Context, opp domain.ArbitrageOpportunity) {
	if err := s.opps.Insert(ctx, opp); err != nil {
		s.logger.WarnContext(ctx, "arb_service: insert opportunity failed",
			slog.String("id", opp.ID),
			slog.String("error", err.Error()),
		)
	}

	publish(ctx, s.bus, s.logger, domain.ChannelArbitrage, event{Event: "opportunity", Data: opp})
	audit(ctx, s.auditLog, s.logger, "arbitrage.detected", map[string]any{
		"id":         opp.ID,
		"pair":       opp.Pair,
		"buy_venue":  opp.BuyVenue,
		"sell_venue": opp.SellVenue,
		"profit_pct": opp.ProfitPct,
		"confidence": string(opp.Confidence),
	})
	title, msg := notify.OpportunityMessage(opp)
	sendNotify(ctx, s.notifier, s.logger, notify.EventOpportunity, title, msg)

	s.logger.InfoContext(ctx, "arb_service: opportunity detected",
		slog.String("id", opp.ID),
		slog.String("pair", opp.Pair),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
		slog.Float64("profit_pct", opp.ProfitPct),
		slog.String("confidence", string(opp.Confidence)),
	)
}

// ListRecent returns stored opportunities, newest first.
func (s *ArbitrageService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageOpportunity, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	opps, err := s.opps.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("arb_service: list recent: %w", err)
	}
	return opps, nil
}

// Get returns one stored opportunity.
func (s *ArbitrageService) Get(ctx context.Context, id string) (domain.ArbitrageOpportunity, error) {
	opp, err := s.opps.GetByID(ctx, id)
	if err != nil {
		return domain.ArbitrageOpportunity{}, fmt.Errorf("arb_service: get %s: %w", id, err)
	}
	return opp, nil
}

// Profit summarises executed trades and detected opportunities since since.
func (s *ArbitrageService) Profit(ctx context.Context, since time.Time) (domain.ArbProfitSummary, error) {
	sum, err := s.trades.Summary(ctx, since)
	if err != nil {
		return domain.ArbProfitSummary{}, fmt.Errorf("arb_service: profit: %w", err)
	}
	n, err := s.opps.Count(ctx, since)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.ArbProfitSummary{}, fmt.Errorf("arb_service: profit: count: %w", err)
	}
	sum.Opportunities = n
	return sum, nil
}
