package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memCache is an in-memory domain.MarketCache with the same
// last-write-wins rule as the redis one.
type memCache struct {
	mu      sync.Mutex
	markets map[string]domain.MarketData
	snaps   map[string]map[string]domain.PriceSnapshot
	err     error
}

func newMemCache() *memCache {
	return &memCache{
		markets: make(map[string]domain.MarketData),
		snaps:   make(map[string]map[string]domain.PriceSnapshot),
	}
}

func (c *memCache) SetMarket(_ context.Context, md domain.MarketData) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if cur, ok := c.markets[md.Symbol]; ok && md.UpdatedAt.Before(cur.UpdatedAt) {
		return false, nil
	}
	c.markets[md.Symbol] = md
	return true, nil
}

func (c *memCache) GetMarket(_ context.Context, symbol string) (domain.MarketData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	md, ok := c.markets[symbol]
	if !ok {
		return domain.MarketData{}, domain.ErrNotFound
	}
	return md, nil
}

func (c *memCache) ListMarkets(context.Context) ([]domain.MarketData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.MarketData, 0, len(c.markets))
	for _, md := range c.markets {
		out = append(out, md)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (c *memCache) SetSnapshot(_ context.Context, snap domain.PriceSnapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	venues, ok := c.snaps[snap.Pair]
	if !ok {
		venues = make(map[string]domain.PriceSnapshot)
		c.snaps[snap.Pair] = venues
	}
	if cur, ok := venues[snap.Venue]; ok && snap.Timestamp.Before(cur.Timestamp) {
		return false, nil
	}
	venues[snap.Venue] = snap
	return true, nil
}

func (c *memCache) Snapshots(_ context.Context, pair string) ([]domain.PriceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.PriceSnapshot
	for _, s := range c.snaps[pair] {
		out = append(out, s)
	}
	return out, nil
}

func (c *memCache) Pairs(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for p := range c.snaps {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

type memBus struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func newMemBus() *memBus { return &memBus{sent: make(map[string][][]byte)} }

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[channel] = append(b.sent[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan domain.BusMessage, error) {
	return make(chan domain.BusMessage), nil
}

func (b *memBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent[channel])
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *memAudit) ListBefore(context.Context, time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *memAudit) has(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.events {
		if e == event {
			return true
		}
	}
	return false
}

type sentAlert struct{ event, title string }

type memNotifier struct {
	mu   sync.Mutex
	sent []sentAlert
}

func (n *memNotifier) Notify(_ context.Context, event, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentAlert{event: event, title: title})
	return nil
}

type memSnapshotStore struct {
	markets []domain.MarketData
	snaps   []domain.PriceSnapshot
}

func (s *memSnapshotStore) InsertMarketData(_ context.Context, rows []domain.MarketData) error {
	s.markets = append(s.markets, rows...)
	return nil
}

func (s *memSnapshotStore) InsertPriceSnapshots(_ context.Context, rows []domain.PriceSnapshot) error {
	s.snaps = append(s.snaps, rows...)
	return nil
}

func (s *memSnapshotStore) LatestMarketData(context.Context) ([]domain.MarketData, error) {
	var out []domain.MarketData
	for _, md := range domain.SelectLatest(s.markets) {
		out = append(out, md)
	}
	return out, nil
}

func (s *memSnapshotStore) ListPriceSnapshots(_ context.Context, pair string, _ domain.ListOpts) ([]domain.PriceSnapshot, error) {
	var out []domain.PriceSnapshot
	for _, snap := range s.snaps {
		if snap.Pair == pair {
			out = append(out, snap)
		}
	}
	return out, nil
}

type memOppStore struct {
	mu   sync.Mutex
	rows map[string]domain.ArbitrageOpportunity
}

func newMemOppStore(opps ...domain.ArbitrageOpportunity) *memOppStore {
	s := &memOppStore{rows: make(map[string]domain.ArbitrageOpportunity)}
	for _, o := range opps {
		s.rows[o.ID] = o
	}
	return s
}

func (s *memOppStore) Insert(_ context.Context, opp domain.ArbitrageOpportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[opp.ID] = opp
	return nil
}

func (s *memOppStore) GetByID(_ context.Context, id string) (domain.ArbitrageOpportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok {
		return domain.ArbitrageOpportunity{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *memOppStore) MarkExecuted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Executed = true
	s.rows[id] = o
	return nil
}

func (s *memOppStore) ListRecent(context.Context, domain.ListOpts) ([]domain.ArbitrageOpportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ArbitrageOpportunity
	for _, o := range s.rows {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}

func (s *memOppStore) ListBefore(context.Context, time.Time) ([]domain.ArbitrageOpportunity, error) {
	return nil, nil
}

func (s *memOppStore) Count(context.Context, time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

type memTradeStore struct {
	mu   sync.Mutex
	rows []domain.TradeRecord
}

func (s *memTradeStore) Insert(_ context.Context, rec domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rec)
	return nil
}

func (s *memTradeStore) List(_ context.Context, wallet string, _ domain.ListOpts) ([]domain.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TradeRecord
	for _, r := range s.rows {
		if wallet == "" || r.Wallet == wallet {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memTradeStore) ListBefore(context.Context, time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *memTradeStore) Summary(context.Context, time.Time) (domain.ArbProfitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum domain.ArbProfitSummary
	for _, r := range s.rows {
		sum.Trades++
		switch r.Status {
		case domain.TradeSuccess:
			sum.Successful++
		case domain.TradePartial:
			sum.Partial++
		default:
			sum.Failed++
		}
		sum.TotalProfit += r.ProfitADA
	}
	return sum, nil
}

type fakeLocks struct {
	held bool
}

func (l *fakeLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	return func() { l.held = false }, nil
}

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, nil
}
