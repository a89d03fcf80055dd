package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// StrategyService defines the methods that the strategy handler requires.
type StrategyService interface {
	List(ctx context.Context) ([]domain.TradingStrategy, error)
	Create(ctx context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error)
	Update(ctx context.Context, st domain.TradingStrategy) (domain.TradingStrategy, error)
	Toggle(ctx context.Context, id string) (domain.TradingStrategy, error)
	Delete(ctx context.Context, id string) error
}

// StrategyHandler serves strategy configuration HTTP endpoints.
type StrategyHandler struct {
	strategies StrategyService
	logger     *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler with the given service and logger.
func NewStrategyHandler(strategies StrategyService, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{strategies: strategies, logger: logger}
}

type strategyRequest struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Active bool           `json:"active"`
	Config map[string]any `json:"config"`
}

func (req strategyRequest) strategy() (domain.TradingStrategy, error) {
	t, err := domain.ParseStrategyType(req.Type)
	if err != nil {
		return domain.TradingStrategy{}, err
	}
	cfg := req.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	return domain.TradingStrategy{Name: req.Name, Type: t, Active: req.Active, Config: cfg}, nil
}

// ListStrategies returns every configured strategy.
// GET /api/strategies
func (h *StrategyHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	list, err := h.strategies.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list strategies", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": orEmpty(list)})
}

// CreateStrategy stores a new strategy.
// POST /api/strategies
func (h *StrategyHandler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := req.strategy()
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to create strategy", err)
		return
	}
	created, err := h.strategies.Create(r.Context(), st)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to create strategy", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateStrategy replaces a strategy's editable fields.
// PUT /api/strategies/{id}
func (h *StrategyHandler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := req.strategy()
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to update strategy", err)
		return
	}
	st.ID = r.PathValue("id")
	updated, err := h.strategies.Update(r.Context(), st)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to update strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ToggleStrategy flips the active flag.
// POST /api/strategies/{id}/toggle
func (h *StrategyHandler) ToggleStrategy(w http.ResponseWriter, r *http.Request) {
	st, err := h.strategies.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to toggle strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteStrategy removes a strategy.
// DELETE /api/strategies/{id}
func (h *StrategyHandler) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	if err := h.strategies.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, "failed to delete strategy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
