package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	List(ctx context.Context) ([]domain.MarketData, error)
	Latest(ctx context.Context, symbol string) (domain.MarketData, error)
	Snapshots(ctx context.Context, pair string) ([]domain.PriceSnapshot, error)
	History(ctx context.Context, pair string, opts domain.ListOpts) ([]domain.PriceSnapshot, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// ListMarkets returns the latest row per symbol.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list markets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": orEmpty(markets)})
}

// GetMarket returns the latest row for one symbol.
// GET /api/markets/{symbol}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	md, err := h.markets.Latest(r.Context(), symbol)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to get market", err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// Quotes returns the per-venue quotes for a pair. With history=true it pages
// through persisted quotes instead.
// GET /api/quotes?pair=ADA/USD[&history=true&limit=100]
func (h *MarketHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		writeError(w, http.StatusBadRequest, "pair query parameter required")
		return
	}

	var (
		snaps []domain.PriceSnapshot
		err   error
	)
	if r.URL.Query().Get("history") == "true" {
		snaps, err = h.markets.History(r.Context(), pair, parseListOpts(r))
	} else {
		snaps, err = h.markets.Snapshots(r.Context(), pair)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to get quotes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pair": pair, "quotes": orEmpty(snaps)})
}
