package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// PositionService defines the methods that the position handler requires.
type PositionService interface {
	List(ctx context.Context) ([]domain.Position, error)
	Add(ctx context.Context, pos domain.Position) (domain.Position, error)
	Toggle(ctx context.Context, id string) (domain.Position, error)
	Remove(ctx context.Context, id string) error
}

// PositionHandler serves market-making position endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

type addPositionRequest struct {
	Pair      string  `json:"pair"`
	Venue     string  `json:"venue"`
	Liquidity float64 `json:"liquidity"`
	Spread    float64 `json:"spread"`
}

// ListPositions returns every position.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	list, err := h.positions.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list positions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": orEmpty(list)})
}

// AddPosition opens a simulated liquidity position.
// POST /api/positions
func (h *PositionHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
	var req addPositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pos, err := h.positions.Add(r.Context(), domain.Position{
		Pair:      req.Pair,
		Venue:     req.Venue,
		Liquidity: req.Liquidity,
		Spread:    req.Spread,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to add position", err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

// TogglePosition pauses or resumes a position.
// POST /api/positions/{id}/toggle
func (h *PositionHandler) TogglePosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.positions.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to toggle position", err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// RemovePosition deletes a position.
// DELETE /api/positions/{id}
func (h *PositionHandler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	if err := h.positions.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, "failed to remove position", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
