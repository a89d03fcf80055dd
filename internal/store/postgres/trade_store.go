package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, opportunity_id, pair, buy_venue, sell_venue, amount,
	buy_price, sell_price, profit_ada, status, buy_tx_id, sell_tx_id, error,
	wallet, created_at`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var status string
		if err := rows.Scan(
			&t.ID, &t.OpportunityID, &t.Pair, &t.BuyVenue, &t.SellVenue, &t.Amount,
			&t.BuyPrice, &t.SellPrice, &t.ProfitADA, &status, &t.BuyTxID, &t.SellTxID, &t.Error,
			&t.Wallet, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.Status = domain.TradeStatus(status)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert records one execution attempt, including failed and partial ones.
func (s *TradeStore) Insert(ctx context.Context, t domain.TradeRecord) error {
	const query = `
		INSERT INTO trade_history (
			id, opportunity_id, pair, buy_venue, sell_venue, amount,
			buy_price, sell_price, profit_ada, status, buy_tx_id, sell_tx_id, error,
			wallet, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15
		)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.OpportunityID, t.Pair, t.BuyVenue, t.SellVenue, t.Amount,
		t.BuyPrice, t.SellPrice, t.ProfitADA, string(t.Status), t.BuyTxID, t.SellTxID, t.Error,
		t.Wallet, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

// List returns trades newest first. An empty wallet lists every wallet.
func (s *TradeStore) List(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trade_history WHERE 1=1`
	var args []any
	if wallet != "" {
		query += " AND wallet = $1"
		args = append(args, wallet)
	}
	query, args = withListOpts(query, args, "created_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns trades created strictly before the cutoff, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trade_history WHERE created_at < $1 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// Summary aggregates outcomes since the given time.
func (s *TradeStore) Summary(ctx context.Context, since time.Time) (domain.ArbProfitSummary, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM arbitrage_opportunities WHERE detected_at >= $1),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'partial'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(profit_ada) FILTER (WHERE status = 'success'), 0)
		FROM trade_history
		WHERE created_at >= $1`

	var sum domain.ArbProfitSummary
	if err := s.pool.QueryRow(ctx, query, since).Scan(
		&sum.Opportunities, &sum.Trades, &sum.Successful, &sum.Partial, &sum.Failed, &sum.TotalProfit,
	); err != nil {
		return domain.ArbProfitSummary{}, fmt.Errorf("postgres: trade summary: %w", err)
	}
	return sum, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
