package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, pair, buy_venue, sell_venue, buy_price, sell_price,
	profit_pct, profit_ada, confidence, volume_available, risk_score,
	executable, executed, detected_at, expires_at`

func scanOpportunity(row pgx.Row) (domain.ArbitrageOpportunity, error) {
	var o domain.ArbitrageOpportunity
	var confidence string
	err := row.Scan(
		&o.ID, &o.Pair, &o.BuyVenue, &o.SellVenue, &o.BuyPrice, &o.SellPrice,
		&o.ProfitPct, &o.ProfitADA, &confidence, &o.VolumeAvailable, &o.RiskScore,
		&o.Executable, &o.Executed, &o.DetectedAt, &o.ExpiresAt,
	)
	o.Confidence = domain.Confidence(confidence)
	return o, err
}

func scanOpportunityRows(rows pgx.Rows) ([]domain.ArbitrageOpportunity, error) {
	var out []domain.ArbitrageOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Insert stores a detected opportunity. Re-inserting an ID is a no-op.
func (s *OpportunityStore) Insert(ctx context.Context, o domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO arbitrage_opportunities (
			id, pair, buy_venue, sell_venue, buy_price, sell_price,
			profit_pct, profit_ada, confidence, volume_available, risk_score,
			executable, executed, detected_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.Pair, o.BuyVenue, o.SellVenue, o.BuyPrice, o.SellPrice,
		o.ProfitPct, o.ProfitADA, string(o.Confidence), o.VolumeAvailable, o.RiskScore,
		o.Executable, o.Executed, o.DetectedAt, o.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", o.ID, err)
	}
	return nil
}

// GetByID returns domain.ErrNotFound for an unknown id.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.ArbitrageOpportunity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+oppSelectCols+` FROM arbitrage_opportunities WHERE id = $1`, id)
	o, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArbitrageOpportunity{}, domain.ErrNotFound
		}
		return domain.ArbitrageOpportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	return o, nil
}

// MarkExecuted flags an opportunity as executed.
func (s *OpportunityStore) MarkExecuted(ctx context.Context, id string) error {
	const query = `
		UPDATE arbitrage_opportunities SET
			executed    = TRUE,
			executed_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity executed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns opportunities newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageOpportunity, error) {
	query, args := withListOpts(`SELECT `+oppSelectCols+` FROM arbitrage_opportunities WHERE 1=1`, nil, "detected_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	out, err := scanOpportunityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan opportunities: %w", err)
	}
	return out, nil
}

// ListBefore returns opportunities detected strictly before the cutoff, oldest first.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ArbitrageOpportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+oppSelectCols+` FROM arbitrage_opportunities WHERE detected_at < $1 ORDER BY detected_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before: %w", err)
	}
	defer rows.Close()
	return scanOpportunityRows(rows)
}

// Count returns the number of opportunities detected since the given time.
func (s *OpportunityStore) Count(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM arbitrage_opportunities WHERE detected_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count opportunities: %w", err)
	}
	return n, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
