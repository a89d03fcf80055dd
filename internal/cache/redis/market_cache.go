package redis

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/set_if_newer.lua
var setIfNewerLua string

// MarketCache implements domain.MarketCache with one hash per entry and a
// Lua guard so an older row never replaces a newer one.
//
// Key schema:
//
//	market:{SYMBOL}       hash {ts, data}
//	markets               set of symbols
//	snap:{PAIR}:{venue}   hash {ts, data}
//	snap:{PAIR}           set of venues
//	pairs                 set of pairs
type MarketCache struct {
	rdb      *redis.Client
	ttl      time.Duration
	setNewer *redis.Script
}

// NewMarketCache creates a MarketCache. ttl <= 0 keeps entries until overwritten.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	return &MarketCache{
		rdb:      c.Underlying(),
		ttl:      ttl,
		setNewer: redis.NewScript(setIfNewerLua),
	}
}

func marketKey(symbol string) string    { return "market:" + symbol }
func snapSetKey(pair string) string     { return "snap:" + pair }
func snapKey(pair, venue string) string { return "snap:" + pair + ":" + venue }

const (
	marketsKey = "markets"
	pairsKey   = "pairs"
)

func (mc *MarketCache) setIfNewer(ctx context.Context, key string, ts time.Time, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	n, err := mc.setNewer.Run(ctx, mc.rdb, []string{key},
		ts.UnixNano(), data, mc.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetMarket stores md unless a newer row for the same symbol is cached.
func (mc *MarketCache) SetMarket(ctx context.Context, md domain.MarketData) (bool, error) {
	md.Symbol = domain.NormalizeSymbol(md.Symbol)
	applied, err := mc.setIfNewer(ctx, marketKey(md.Symbol), md.UpdatedAt, md)
	if err != nil {
		return false, fmt.Errorf("redis: set market %s: %w", md.Symbol, err)
	}
	if applied {
		if err := mc.rdb.SAdd(ctx, marketsKey, md.Symbol).Err(); err != nil {
			return true, fmt.Errorf("redis: index market %s: %w", md.Symbol, err)
		}
	}
	return applied, nil
}

// GetMarket returns domain.ErrNotFound when the symbol is not cached.
func (mc *MarketCache) GetMarket(ctx context.Context, symbol string) (domain.MarketData, error) {
	symbol = domain.NormalizeSymbol(symbol)
	var md domain.MarketData
	if err := mc.getJSON(ctx, marketKey(symbol), &md); err != nil {
		return domain.MarketData{}, fmt.Errorf("redis: get market %s: %w", symbol, err)
	}
	return md, nil
}

// ListMarkets returns every cached market sorted by symbol. Expired entries
// are dropped from the index as they are found.
func (mc *MarketCache) ListMarkets(ctx context.Context) ([]domain.MarketData, error) {
	symbols, err := mc.rdb.SMembers(ctx, marketsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list markets: %w", err)
	}
	sort.Strings(symbols)

	out := make([]domain.MarketData, 0, len(symbols))
	for _, sym := range symbols {
		var md domain.MarketData
		err := mc.getJSON(ctx, marketKey(sym), &md)
		if errors.Is(err, domain.ErrNotFound) {
			mc.rdb.SRem(ctx, marketsKey, sym)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis: list markets: %w", err)
		}
		out = append(out, md)
	}
	return out, nil
}

// SetSnapshot stores one venue quote unless a newer quote is cached.
func (mc *MarketCache) SetSnapshot(ctx context.Context, snap domain.PriceSnapshot) (bool, error) {
	snap.Pair = domain.NormalizeSymbol(snap.Pair)
	applied, err := mc.setIfNewer(ctx, snapKey(snap.Pair, snap.Venue), snap.Timestamp, snap)
	if err != nil {
		return false, fmt.Errorf("redis: set snapshot %s: %w", snap.Key(), err)
	}
	if !applied {
		return false, nil
	}

	pipe := mc.rdb.TxPipeline()
	pipe.SAdd(ctx, snapSetKey(snap.Pair), snap.Venue)
	pipe.SAdd(ctx, pairsKey, snap.Pair)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis: index snapshot %s: %w", snap.Key(), err)
	}
	return true, nil
}

// Snapshots returns the latest quote of every venue for pair, sorted by venue.
func (mc *MarketCache) Snapshots(ctx context.Context, pair string) ([]domain.PriceSnapshot, error) {
	pair = domain.NormalizeSymbol(pair)
	venues, err := mc.rdb.SMembers(ctx, snapSetKey(pair)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: snapshots %s: %w", pair, err)
	}
	sort.Strings(venues)

	out := make([]domain.PriceSnapshot, 0, len(venues))
	for _, venue := range venues {
		var snap domain.PriceSnapshot
		err := mc.getJSON(ctx, snapKey(pair, venue), &snap)
		if errors.Is(err, domain.ErrNotFound) {
			mc.rdb.SRem(ctx, snapSetKey(pair), venue)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis: snapshots %s: %w", pair, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Pairs returns every pair with at least one cached quote.
func (mc *MarketCache) Pairs(ctx context.Context) ([]string, error) {
	pairs, err := mc.rdb.SMembers(ctx, pairsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: pairs: %w", err)
	}
	sort.Strings(pairs)
	return pairs, nil
}

func (mc *MarketCache) getJSON(ctx context.Context, key string, dst any) error {
	data, err := mc.rdb.HGet(ctx, key, "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

var _ domain.MarketCache = (*MarketCache)(nil)
