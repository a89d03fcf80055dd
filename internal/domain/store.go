package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketSnapshotStore persists market-data and venue price snapshots.
type MarketSnapshotStore interface {
	InsertMarketData(ctx context.Context, rows []MarketData) error
	InsertPriceSnapshots(ctx context.Context, rows []PriceSnapshot) error
	LatestMarketData(ctx context.Context) ([]MarketData, error)
	ListPriceSnapshots(ctx context.Context, pair string, opts ListOpts) ([]PriceSnapshot, error)
}

// OpportunityStore persists detected arbitrage opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	GetByID(ctx context.Context, id string) (ArbitrageOpportunity, error)
	MarkExecuted(ctx context.Context, id string) error
	ListRecent(ctx context.Context, opts ListOpts) ([]ArbitrageOpportunity, error)
	ListBefore(ctx context.Context, before time.Time) ([]ArbitrageOpportunity, error)
	Count(ctx context.Context, since time.Time) (int64, error)
}

// TradeStore persists trade history.
type TradeStore interface {
	Insert(ctx context.Context, rec TradeRecord) error
	List(ctx context.Context, wallet string, opts ListOpts) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	Summary(ctx context.Context, since time.Time) (ArbProfitSummary, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}

// StrategyStore manages trading strategies through the backend's stored
// procedures.
type StrategyStore interface {
	Create(ctx context.Context, s TradingStrategy) (TradingStrategy, error)
	Update(ctx context.Context, s TradingStrategy) (TradingStrategy, error)
	Toggle(ctx context.Context, id string) (TradingStrategy, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (TradingStrategy, error)
	List(ctx context.Context) ([]TradingStrategy, error)
}

// PositionStore persists market-making positions.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Update(ctx context.Context, pos Position) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Position, error)
	List(ctx context.Context) ([]Position, error)
}

// SessionStore is the small key/value store used to reconnect a wallet after
// a restart.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Session keys.
const (
	SessionWalletName    = "wallet.name"
	SessionWalletAddress = "wallet.address"
)
