package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/poll"
)

const strategyListKey = "strategies"

// StrategyService manages strategy configuration. Reads are served from a
// short-lived local cache that every mutation invalidates.
type StrategyService struct {
	store    domain.StrategyStore
	bus      domain.SignalBus
	auditLog domain.AuditStore
	cache    *poll.Cache[[]domain.TradingStrategy]
	ttl      time.Duration
	logger   *slog.Logger
}

// NewStrategyService creates a StrategyService. A zero ttl defaults to 30s.
func NewStrategyService(
	store domain.StrategyStore,
	bus domain.SignalBus,
	auditLog domain.AuditStore,
	ttl time.Duration,
	logger *slog.Logger,
) *StrategyService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StrategyService{
		store:    store,
		bus:      bus,
		auditLog: auditLog,
		cache:    poll.NewCache[[]domain.TradingStrategy](),
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "strategy_service")),
	}
}

// List returns every strategy.
func (s *StrategyService) List(ctx context.Context) ([]domain.TradingStrategy, error) {
	if cached, ok := s.cache.Get(strategyListKey); ok {
		return cached, nil
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategy_service: list: %w", err)
	}
	s.cache.Set(strategyListKey, list, s.ttl)
	return list, nil
}

// Get returns one strategy.
func (s *StrategyService) Get(ctx context.Context, id string) (domain.TradingStrategy, error) {
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("strategy_service: get %s: %w", id, err)
	}
	return st, nil
}

// Create validates and stores a new strategy.
func (s *StrategyService) Create(ctx context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error) {
	if err := st.Validate(); err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("strategy_service: create: %w", err)
	}
	created, err := s.store.Create(ctx, st)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("strategy_service: create: %w", err)
	}
	s.changed(ctx, "strategy.created", created)
	return created, nil
}

// Update replaces the editable fields of an existing strategy.
func (s *StrategyService) Update(ctx context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error) {
	if err := st.Validate(); err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("strategy_service: update: %w", err)
	}
	updated, err := s.store.Update(ctx, st)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("strategy_service: update %s: %w", st.ID, err)
	}
	s.changed(ctx, "strategy.updated", updated)
	return updated, nil
}

// Toggle flips the active flag.
func (s *StrategyService) Toggle(ctx context.Context, id string) (domain.TradingStrategy, error) {
	toggled, err := s.store.Toggle(ctx, id)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("strategy_service: toggle %s: %w", id, err)
	}
	s.changed(ctx, "strategy.toggled", toggled)
	return toggled, nil
}

// Delete removes a strategy.
func (s *StrategyService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("strategy_service: delete %s: %w", id, err)
	}
	s.changed(ctx, "strategy.deleted", domain.TradingStrategy{ID: id})
	return nil
}

func (s *StrategyService) changed(ctx context.Context, action string, st domain.TradingStrategy) {
	s.cache.Delete(strategyListKey)
	publish(ctx, s.bus, s.logger, domain.ChannelStrategy, event{Event: action, Data: st})
	audit(ctx, s.auditLog, s.logger, action, map[string]any{
		"id":     st.ID,
		"name":   st.Name,
		"type":   string(st.Type),
		"active": st.Active,
	})
	s.logger.InfoContext(ctx, "strategy_service: "+action, slog.String("id", st.ID))
}
