package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// StrategyStore implements domain.StrategyStore. Every write goes through
// the create_strategy, update_strategy, toggle_strategy and delete_strategy
// database functions; reads use list_strategies.
type StrategyStore struct {
	pool *pgxpool.Pool
}

// NewStrategyStore creates a new StrategyStore backed by the given connection pool.
func NewStrategyStore(pool *pgxpool.Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

const strategyCols = `id::text, name, type, active, profit_loss, trade_count, config, created_at, updated_at`

func scanStrategy(row pgx.Row) (domain.TradingStrategy, error) {
	var st domain.TradingStrategy
	var typ string
	var cfg []byte
	if err := row.Scan(&st.ID, &st.Name, &typ, &st.Active, &st.ProfitLoss,
		&st.TradeCount, &cfg, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return domain.TradingStrategy{}, err
	}
	st.Type = domain.StrategyType(typ)
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &st.Config); err != nil {
			return domain.TradingStrategy{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	return st, nil
}

func marshalConfig(cfg map[string]any) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(cfg)
}

// validID rejects ids that are not UUIDs before they reach a ::uuid cast.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create inserts a strategy and returns the stored row with its generated id.
func (s *StrategyStore) Create(ctx context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error) {
	cfg, err := marshalConfig(st.Config)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("postgres: marshal strategy config: %w", err)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+strategyCols+` FROM create_strategy($1, $2, $3, $4::jsonb)`,
		st.Name, string(st.Type), st.Active, cfg)
	out, err := scanStrategy(row)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("postgres: create strategy %s: %w", st.Name, err)
	}
	return out, nil
}

// Update replaces name, type, active and config of an existing strategy.
func (s *StrategyStore) Update(ctx context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error) {
	if !validID(st.ID) {
		return domain.TradingStrategy{}, domain.ErrNotFound
	}
	cfg, err := marshalConfig(st.Config)
	if err != nil {
		return domain.TradingStrategy{}, fmt.Errorf("postgres: marshal strategy config: %w", err)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+strategyCols+` FROM update_strategy($1::uuid, $2, $3, $4, $5::jsonb)`,
		st.ID, st.Name, string(st.Type), st.Active, cfg)
	out, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradingStrategy{}, domain.ErrNotFound
		}
		return domain.TradingStrategy{}, fmt.Errorf("postgres: update strategy %s: %w", st.ID, err)
	}
	return out, nil
}

// Toggle flips the active flag and returns the updated row.
func (s *StrategyStore) Toggle(ctx context.Context, id string) (domain.TradingStrategy, error) {
	if !validID(id) {
		return domain.TradingStrategy{}, domain.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+strategyCols+` FROM toggle_strategy($1::uuid)`, id)
	out, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradingStrategy{}, domain.ErrNotFound
		}
		return domain.TradingStrategy{}, fmt.Errorf("postgres: toggle strategy %s: %w", id, err)
	}
	return out, nil
}

// Delete removes a strategy.
func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	var deleted bool
	if err := s.pool.QueryRow(ctx, `SELECT delete_strategy($1::uuid)`, id).Scan(&deleted); err != nil {
		return fmt.Errorf("postgres: delete strategy %s: %w", id, err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns one strategy by id.
func (s *StrategyStore) Get(ctx context.Context, id string) (domain.TradingStrategy, error) {
	if !validID(id) {
		return domain.TradingStrategy{}, domain.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+strategyCols+` FROM list_strategies() WHERE id = $1::uuid`, id)
	out, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradingStrategy{}, domain.ErrNotFound
		}
		return domain.TradingStrategy{}, fmt.Errorf("postgres: get strategy %s: %w", id, err)
	}
	return out, nil
}

// List returns every strategy, newest first.
func (s *StrategyStore) List(ctx context.Context) ([]domain.TradingStrategy, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+strategyCols+` FROM list_strategies()`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategies: %w", err)
	}
	defer rows.Close()

	var out []domain.TradingStrategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan strategy: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list strategies rows: %w", err)
	}
	return out, nil
}

var _ domain.StrategyStore = (*StrategyStore)(nil)
