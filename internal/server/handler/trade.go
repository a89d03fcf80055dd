package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// TradeService defines the methods that the trade handler requires.
type TradeService interface {
	List(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.TradeRecord, error)
}

// TradeHandler serves trade history.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// ListTrades returns trade history, optionally for one wallet.
// GET /api/trades?wallet=addr1...&limit=50
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	recs, err := h.trades.List(r.Context(), r.URL.Query().Get("wallet"), parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list trades", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": orEmpty(recs)})
}
