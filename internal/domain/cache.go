package domain

import (
	"context"
	"time"
)

// MarketCache holds the latest market data and venue snapshots shared across
// instances. Writes are last-write-wins by timestamp: a row older than the
// cached one is ignored.
type MarketCache interface {
	SetMarket(ctx context.Context, md MarketData) (applied bool, err error)
	GetMarket(ctx context.Context, symbol string) (MarketData, error)
	ListMarkets(ctx context.Context) ([]MarketData, error)
	SetSnapshot(ctx context.Context, snap PriceSnapshot) (applied bool, err error)
	Snapshots(ctx context.Context, pair string) ([]PriceSnapshot, error)
	Pairs(ctx context.Context) ([]string, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out between services and the ws hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan BusMessage, error)
}

// BusMessage is one pub/sub delivery. Channel is the concrete channel the
// message was published on, which differs from the subscription for patterns.
type BusMessage struct {
	Channel string
	Payload []byte
}

// Bus channels.
const (
	ChannelMarket    = "ch:market"
	ChannelArbitrage = "ch:arbitrage"
	ChannelTrade     = "ch:trade"
	ChannelPosition  = "ch:position"
	ChannelWallet    = "ch:wallet"
	ChannelStrategy  = "ch:strategy"
)
