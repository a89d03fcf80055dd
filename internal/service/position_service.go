package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/notify"
)

// PositionConfig tunes the simulated fee accrual.
type PositionConfig struct {
	// DailyTurnover is the fraction of liquidity assumed to trade per day.
	DailyTurnover float64
	// RevalueInterval is the Run period.
	RevalueInterval time.Duration
}

// PositionService manages simulated market-making positions: add, pause or
// resume, remove, and periodic revaluation of fees, impermanent loss and APY.
type PositionService struct {
	positions domain.PositionStore
	cache     domain.MarketCache
	bus       domain.SignalBus
	auditLog  domain.AuditStore
	notifier  Notifier
	cfg       PositionConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewPositionService creates a PositionService. cache, bus, auditLog and
// notifier may be nil.
func NewPositionService(
	positions domain.PositionStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	auditLog domain.AuditStore,
	notifier Notifier,
	cfg PositionConfig,
	logger *slog.Logger,
) *PositionService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DailyTurnover <= 0 {
		cfg.DailyTurnover = 0.1
	}
	if cfg.RevalueInterval <= 0 {
		cfg.RevalueInterval = time.Minute
	}
	return &PositionService{
		positions: positions,
		cache:     cache,
		bus:       bus,
		auditLog:  auditLog,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "position_service")),
		now:       time.Now,
	}
}

// WithClock overrides the clock.
func (s *PositionService) WithClock(now func() time.Time) *PositionService {
	s.now = now
	return s
}

// Add opens an active position. The current venue price becomes the entry
// reference for impermanent loss.
func (s *PositionService) Add(ctx context.Context, pos domain.Position) (domain.Position, error) {
	pos.Pair = domain.NormalizeSymbol(pos.Pair)
	pos.Venue = strings.ToLower(strings.TrimSpace(pos.Venue))
	if err := pos.Validate(); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: add: %w", err)
	}

	now := s.now().UTC()
	pos.ID = uuid.NewString()
	pos.Status = domain.PositionActive
	pos.Volume, pos.FeesEarned, pos.ImpermanentLoss, pos.APY = 0, 0, 0, 0
	pos.CreatedAt = now
	pos.UpdatedAt = now
	if price, ok := s.price(ctx, pos.Pair, pos.Venue); ok {
		pos.EntryPriceRatio = price
	}

	if err := s.positions.Create(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: add: %w", err)
	}
	s.changed(ctx, "added", pos)
	return pos, nil
}

// Toggle switches a position between active and paused.
func (s *PositionService) Toggle(ctx context.Context, id string) (domain.Position, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: toggle %s: %w", id, err)
	}
	pos = pos.Toggled(s.now().UTC())
	if err := s.positions.Update(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: toggle %s: %w", id, err)
	}
	action := "resumed"
	if pos.Status == domain.PositionPaused {
		action = "paused"
	}
	s.changed(ctx, action, pos)
	return pos, nil
}

// Remove deletes a position.
func (s *PositionService) Remove(ctx context.Context, id string) error {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("position_service: remove %s: %w", id, err)
	}
	if err := s.positions.Delete(ctx, id); err != nil {
		return fmt.Errorf("position_service: remove %s: %w", id, err)
	}
	s.changed(ctx, "removed", pos)
	return nil
}

// List returns every position.
func (s *PositionService) List(ctx context.Context) ([]domain.Position, error) {
	list, err := s.positions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("position_service: list: %w", err)
	}
	return list, nil
}

// Revalue accrues simulated fees on every active position since its last
// update, and refreshes impermanent loss and APY against current prices.
// It returns how many positions were updated.
func (s *PositionService) Revalue(ctx context.Context) (int, error) {
	list, err := s.positions.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("position_service: revalue: %w", err)
	}

	now := s.now().UTC()
	var (
		updated int
		errs    []error
	)
	for _, pos := range list {
		if pos.Status != domain.PositionActive {
			continue
		}
		price, ok := s.price(ctx, pos.Pair, pos.Venue)
		next := Accrue(pos, price, ok, s.cfg.DailyTurnover, now)
		if err := s.positions.Update(ctx, next); err != nil {
			errs = append(errs, fmt.Errorf("update %s: %w", pos.ID, err))
			continue
		}
		updated++
		publish(ctx, s.bus, s.logger, domain.ChannelPosition, event{Event: "position_revalued", Data: next})
	}

	if len(errs) > 0 {
		return updated, fmt.Errorf("position_service: revalue: %w", errors.Join(errs...))
	}
	return updated, nil
}

// Accrue advances pos to now. Volume grows by liquidity * turnover per day
// and fees are that volume times the spread. When a current price is known
// the impermanent loss is measured against the entry price; a position with
// no entry price adopts the current one.
func Accrue(pos domain.Position, price float64, havePrice bool, turnover float64, now time.Time) domain.Position {
	if elapsed := now.Sub(pos.UpdatedAt); elapsed > 0 {
		days := elapsed.Hours() / 24
		vol := pos.Liquidity * turnover * days
		pos.Volume += vol
		pos.FeesEarned += vol * pos.Spread / 100
	}
	if havePrice && price > 0 {
		if pos.EntryPriceRatio <= 0 {
			pos.EntryPriceRatio = price
		}
		pos.ImpermanentLoss = domain.ImpermanentLossPct(price / pos.EntryPriceRatio)
	}
	pos.APY = domain.EstimateAPY(pos.FeesEarned, pos.Liquidity, now.Sub(pos.CreatedAt))
	pos.UpdatedAt = now
	return pos
}

// Run revalues on the configured interval until ctx is cancelled.
func (s *PositionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RevalueInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.Revalue(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "position_service: revalue failed", slog.String("error", err.Error()))
				continue
			}
			s.logger.DebugContext(ctx, "position_service: revalued", slog.Int("positions", n))
		}
	}
}

// price is the cached quote for pair at venue, falling back to any venue.
func (s *PositionService) price(ctx context.Context, pair, venue string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	snaps, err := s.cache.Snapshots(ctx, pair)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "position_service: quotes unavailable",
				slog.String("pair", pair),
				slog.String("error", err.Error()),
			)
		}
		return 0, false
	}
	snaps = domain.LatestSnapshots(snaps)
	for _, snap := range snaps {
		if strings.EqualFold(snap.Venue, venue) && snap.Price > 0 {
			return snap.Price, true
		}
	}
	for _, snap := range snaps {
		if snap.Price > 0 {
			return snap.Price, true
		}
	}
	return 0, false
}

func (s *PositionService) changed(ctx context.Context, action string, pos domain.Position) {
	publish(ctx, s.bus, s.logger, domain.ChannelPosition, event{Event: "position_" + action, Data: pos})
	audit(ctx, s.auditLog, s.logger, "position."+action, map[string]any{
		"id":        pos.ID,
		"pair":      pos.Pair,
		"venue":     pos.Venue,
		"liquidity": pos.Liquidity,
		"status":    string(pos.Status),
	})
	title, msg := notify.PositionMessage(action, pos)
	sendNotify(ctx, s.notifier, s.logger, notify.EventPosition, title, msg)
	s.logger.InfoContext(ctx, "position_service: position "+action,
		slog.String("id", pos.ID),
		slog.String("pair", pos.Pair),
	)
}
