package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// MarketStore implements domain.MarketSnapshotStore. Rows are append-only;
// readers pick the latest per symbol.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// InsertMarketData appends one ticker row per element in a single batch.
func (s *MarketStore) InsertMarketData(ctx context.Context, rows []domain.MarketData) error {
	if len(rows) == 0 {
		return nil
	}
	const query = `
		INSERT INTO market_data (symbol, price, change_24h, volume_24h, market_cap, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, md := range rows {
		batch.Queue(query, domain.NormalizeSymbol(md.Symbol), md.Price, md.Change24h,
			md.Volume24h, md.MarketCap, md.Source, md.UpdatedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert market data item %d: %w", i, err)
		}
	}
	return nil
}

// InsertPriceSnapshots appends venue quotes in a single batch.
func (s *MarketStore) InsertPriceSnapshots(ctx context.Context, rows []domain.PriceSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	const query = `
		INSERT INTO price_snapshots (pair, venue, price, volume, timestamp)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for _, snap := range rows {
		batch.Queue(query, domain.NormalizeSymbol(snap.Pair), snap.Venue, snap.Price, snap.Volume, snap.Timestamp)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert price snapshot item %d: %w", i, err)
		}
	}
	return nil
}

// LatestMarketData returns the newest row per symbol. Ties on updated_at go to
// the row inserted last.
func (s *MarketStore) LatestMarketData(ctx context.Context) ([]domain.MarketData, error) {
	const query = `
		SELECT DISTINCT ON (symbol)
			symbol, price, change_24h, volume_24h, market_cap, source, updated_at
		FROM market_data
		ORDER BY symbol, updated_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest market data: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketData
	for rows.Next() {
		var md domain.MarketData
		if err := rows.Scan(&md.Symbol, &md.Price, &md.Change24h, &md.Volume24h,
			&md.MarketCap, &md.Source, &md.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan market data: %w", err)
		}
		out = append(out, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: latest market data rows: %w", err)
	}
	return out, nil
}

// ListPriceSnapshots returns quote history for pair, newest first. An empty
// pair lists every pair.
func (s *MarketStore) ListPriceSnapshots(ctx context.Context, pair string, opts domain.ListOpts) ([]domain.PriceSnapshot, error) {
	query := `SELECT pair, venue, price, volume, timestamp FROM price_snapshots WHERE 1=1`
	var args []any
	if pair != "" {
		query += " AND pair = $1"
		args = append(args, domain.NormalizeSymbol(pair))
	}
	query, args = withListOpts(query, args, "timestamp", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list price snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceSnapshot
	for rows.Next() {
		var snap domain.PriceSnapshot
		if err := rows.Scan(&snap.Pair, &snap.Venue, &snap.Price, &snap.Volume, &snap.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan price snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list price snapshots rows: %w", err)
	}
	return out, nil
}

var _ domain.MarketSnapshotStore = (*MarketStore)(nil)
