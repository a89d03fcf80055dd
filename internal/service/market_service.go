package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/binance"
	"github.com/alanyoungcy/cardanodash/internal/poll"
)

// TopicMarket is the in-process topic carrying every merged batch.
const TopicMarket = "market"

// MarketBatch is one source's refresh: ticker rows and venue quotes.
type MarketBatch struct {
	Source    string                 `json:"source"`
	Markets   []domain.MarketData    `json:"markets,omitempty"`
	Snapshots []domain.PriceSnapshot `json:"snapshots,omitempty"`
}

// MarketSource fetches one batch.
type MarketSource interface {
	Name() string
	Fetch(ctx context.Context) (MarketBatch, error)
}

// MarketService polls every source, merges the results into the shared cache
// with last-write-wins by timestamp, persists what was applied and publishes
// it on ch:market.
type MarketService struct {
	cache  domain.MarketCache
	store  domain.MarketSnapshotStore
	bus    domain.SignalBus
	logger *slog.Logger

	gate    *poll.Gate
	latest  *poll.Cache[MarketBatch]
	subs    *poll.Registry[MarketBatch]
	mu      sync.Mutex
	pollers []*poll.Poller[MarketBatch]
}

// NewMarketService creates a MarketService. store and bus may be nil.
func NewMarketService(
	cache domain.MarketCache,
	store domain.MarketSnapshotStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	l := logger.With(slog.String("component", "market_service"))
	return &MarketService{
		cache:  cache,
		store:  store,
		bus:    bus,
		logger: l,
		gate:   poll.NewGate(0),
		latest: poll.NewCache[MarketBatch](),
		subs:   poll.NewRegistry[MarketBatch](l),
	}
}

// AddSource registers a poller for src. cfg.Domain defaults to the source
// name. Call before Run.
func (s *MarketService) AddSource(src MarketSource, cfg poll.Config) *poll.Poller[MarketBatch] {
	if cfg.Domain == "" {
		cfg.Domain = src.Name()
	}
	p := poll.NewPoller(cfg, src.Fetch, s.gate, s.latest, s.subs, s.logger)
	p.Subscribe(func(b MarketBatch) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.Ingest(ctx, b)
	})

	s.mu.Lock()
	s.pollers = append(s.pollers, p)
	s.mu.Unlock()
	return p
}

// Run runs every poller until ctx is cancelled.
func (s *MarketService) Run(ctx context.Context) error {
	s.mu.Lock()
	pollers := append([]*poll.Poller[MarketBatch](nil), s.pollers...)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pollers {
		g.Go(func() error {
			err := p.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrPollerStopped) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Stop tears every poller down.
func (s *MarketService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pollers {
		p.Stop()
	}
}

// PollerStates reports the supervision state of each source.
func (s *MarketService) PollerStates() []poll.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]poll.State, 0, len(s.pollers))
	for _, p := range s.pollers {
		out = append(out, p.State())
	}
	return out
}

// Subscribe receives every batch after it has been merged.
func (s *MarketService) Subscribe(fn poll.Subscriber[MarketBatch]) func() {
	return s.subs.Subscribe(TopicMarket, fn)
}

// Ingest merges b into the cache. Rows older than what is cached are
// dropped; the rest are persisted and published.
func (s *MarketService) Ingest(ctx context.Context, b MarketBatch) error {
	applied := MarketBatch{Source: b.Source}
	var errs []error
	stale := 0

	for _, md := range b.Markets {
		md.Symbol = domain.NormalizeSymbol(md.Symbol)
		ok, err := s.cache.SetMarket(ctx, md)
		if err != nil {
			errs = append(errs, fmt.Errorf("market %s: %w", md.Symbol, err))
			continue
		}
		if !ok {
			stale++
			continue
		}
		applied.Markets = append(applied.Markets, md)
	}
	for _, snap := range domain.LatestSnapshots(b.Snapshots) {
		ok, err := s.cache.SetSnapshot(ctx, snap)
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot %s: %w", snap.Key(), err))
			continue
		}
		if !ok {
			stale++
			continue
		}
		applied.Snapshots = append(applied.Snapshots, snap)
	}

	if s.store != nil {
		if len(applied.Markets) > 0 {
			if err := s.store.InsertMarketData(ctx, applied.Markets); err != nil {
				errs = append(errs, fmt.Errorf("persist markets: %w", err))
			}
		}
		if len(applied.Snapshots) > 0 {
			if err := s.store.InsertPriceSnapshots(ctx, applied.Snapshots); err != nil {
				errs = append(errs, fmt.Errorf("persist snapshots: %w", err))
			}
		}
	}

	if len(applied.Markets) > 0 || len(applied.Snapshots) > 0 {
		publish(ctx, s.bus, s.logger, domain.ChannelMarket, event{Event: "market_update", Data: applied})
		_ = s.subs.Broadcast(TopicMarket, applied)
	}

	s.logger.DebugContext(ctx, "market_service: ingested batch",
		slog.String("source", b.Source),
		slog.Int("markets", len(applied.Markets)),
		slog.Int("snapshots", len(applied.Snapshots)),
		slog.Int("stale", stale),
	)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("market_service: ingest %s: %w", b.Source, err)
	}
	return nil
}

// IngestLive is the live ticker callback.
func (s *MarketService) IngestLive(t binance.Ticker) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b := MarketBatch{
		Source:    binance.Venue,
		Markets:   []domain.MarketData{t.Market},
		Snapshots: []domain.PriceSnapshot{t.Snapshot},
	}
	if err := s.Ingest(ctx, b); err != nil {
		s.logger.WarnContext(ctx, "market_service: live ingest failed", slog.String("error", err.Error()))
	}
}

// Latest returns the freshest row for symbol, from the cache or else the
// store.
func (s *MarketService) Latest(ctx context.Context, symbol string) (domain.MarketData, error) {
	symbol = domain.NormalizeSymbol(symbol)
	md, err := s.cache.GetMarket(ctx, symbol)
	if err == nil {
		return md, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "market_service: cache get failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
	if s.store == nil {
		return domain.MarketData{}, fmt.Errorf("market_service: latest %q: %w", symbol, domain.ErrNotFound)
	}

	rows, err := s.store.LatestMarketData(ctx)
	if err != nil {
		return domain.MarketData{}, fmt.Errorf("market_service: latest %q: %w", symbol, err)
	}
	md, ok := domain.SelectLatest(rows)[symbol]
	if !ok {
		return domain.MarketData{}, fmt.Errorf("market_service: latest %q: %w", symbol, domain.ErrNotFound)
	}
	return md, nil
}

// List returns one row per symbol. A cache failure falls back to the store
// when there is one and is returned otherwise.
func (s *MarketService) List(ctx context.Context) ([]domain.MarketData, error) {
	rows, err := s.cache.ListMarkets(ctx)
	if err == nil && len(rows) > 0 {
		return rows, nil
	}
	if s.store == nil {
		if err != nil {
			return nil, fmt.Errorf("market_service: list: %w", err)
		}
		return rows, nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "market_service: cache list failed", slog.String("error", err.Error()))
	}
	rows, err = s.store.LatestMarketData(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return rows, nil
}

// Snapshots returns the latest quote per venue for pair.
func (s *MarketService) Snapshots(ctx context.Context, pair string) ([]domain.PriceSnapshot, error) {
	snaps, err := s.cache.Snapshots(ctx, domain.NormalizeSymbol(pair))
	if err != nil {
		return nil, fmt.Errorf("market_service: snapshots %q: %w", pair, err)
	}
	return domain.LatestSnapshots(snaps), nil
}

// History pages through persisted quotes for pair.
func (s *MarketService) History(ctx context.Context, pair string, opts domain.ListOpts) ([]domain.PriceSnapshot, error) {
	if s.store == nil {
		return nil, nil
	}
	rows, err := s.store.ListPriceSnapshots(ctx, domain.NormalizeSymbol(pair), opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: history %q: %w", pair, err)
	}
	return rows, nil
}
