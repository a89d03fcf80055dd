package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// ArbService defines the methods that the arbitrage handler requires.
type ArbService interface {
	Scan(ctx context.Context) ([]domain.ArbitrageOpportunity, error)
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageOpportunity, error)
	Get(ctx context.Context, id string) (domain.ArbitrageOpportunity, error)
	Profit(ctx context.Context, since time.Time) (domain.ArbProfitSummary, error)
}

// TradeExecutor runs a stored opportunity.
type TradeExecutor interface {
	Execute(ctx context.Context, oppID string, amount float64) (domain.TradeRecord, error)
}

// ArbHandler serves arbitrage-related HTTP endpoints.
type ArbHandler struct {
	arb    ArbService
	trades TradeExecutor
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(arb ArbService, trades TradeExecutor, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{arb: arb, trades: trades, logger: logger}
}

// ListOpportunities returns the most recent opportunities. With
// executable=true only the ones flagged executable and not yet run.
// GET /api/arbitrage/opportunities?limit=20&executable=true
func (h *ArbHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	if r.URL.Query().Get("limit") == "" {
		opts.Limit = 20
	}
	opps, err := h.arb.ListRecent(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list arbitrage opportunities", err)
		return
	}

	if r.URL.Query().Get("executable") == "true" {
		kept := opps[:0]
		now := time.Now()
		for _, o := range opps {
			if o.Executable && !o.Executed && !o.Expired(now) {
				kept = append(kept, o)
			}
		}
		opps = kept
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": orEmpty(opps)})
}

// GetOpportunity returns one opportunity.
// GET /api/arbitrage/opportunities/{id}
func (h *ArbHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := h.arb.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to get opportunity", err)
		return
	}
	writeJSON(w, http.StatusOK, opp)
}

// Scan runs one scan now and returns what it found.
// POST /api/arbitrage/scan
func (h *ArbHandler) Scan(w http.ResponseWriter, r *http.Request) {
	opps, err := h.arb.Scan(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "arbitrage scan failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": orEmpty(opps),
		"scanned_at":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Profit returns the trade outcome summary.
// GET /api/arbitrage/profit?since=2026-01-01
func (h *ArbHandler) Profit(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if t, ok := parseTime(r.URL.Query().Get("since")); ok {
		since = t
	}
	sum, err := h.arb.Profit(r.Context(), since)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to compute profit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":   since.Format(time.RFC3339),
		"summary": sum,
	})
}

type executeRequest struct {
	Amount float64 `json:"amount"`
}

// Execute runs the simulated two-leg trade for an opportunity. A partial or
// failed execution is still a 200 with the record.
// POST /api/arbitrage/execute/{id}
func (h *ArbHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity id")
		return
	}
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be >= 0")
		return
	}

	rec, err := h.trades.Execute(r.Context(), id, req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "trade execution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
