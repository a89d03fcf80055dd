package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/poll"
)

// PollerStates reports market poller supervision.
type PollerStates interface {
	PollerStates() []poll.State
}

// WalletStater exposes the wallet state.
type WalletStater interface {
	State() domain.WalletState
}

// StatusHandler serves the backend status for the dashboard header.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	pollers   PollerStates
	wallet    WalletStater
	clients   func() int
}

// NewStatusHandler creates a StatusHandler. pollers, wallet and clients may
// be nil.
func NewStatusHandler(mode string, startedAt time.Time, pollers PollerStates, wallet WalletStater, clients func() int) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, pollers: pollers, wallet: wallet, clients: clients}
}

// GetStatus responds with the mode, uptime, poller states and wallet summary.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"mode":           h.mode,
		"started_at":     h.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.pollers != nil {
		body["pollers"] = orEmpty(h.pollers.PollerStates())
	}
	if h.wallet != nil {
		st := h.wallet.State()
		body["wallet"] = map[string]any{
			"connected":   st.Connected,
			"wallet_name": st.WalletName,
			"network":     st.NetworkName(),
		}
	}
	if h.clients != nil {
		body["ws_clients"] = h.clients()
	}
	writeJSON(w, http.StatusOK, body)
}
