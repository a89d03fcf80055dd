package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// WalletService defines the methods that the wallet handler requires.
type WalletService interface {
	State() domain.WalletState
	Connect(ctx context.Context, name string) (domain.WalletState, error)
	Disconnect(ctx context.Context) domain.WalletState
	Refresh(ctx context.Context) (domain.WalletState, error)
}

// WalletHandler serves wallet connection endpoints.
type WalletHandler struct {
	wallet WalletService
	names  func() []string
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler. names lists the connectable
// wallets and may be nil.
func NewWalletHandler(wallet WalletService, names func() []string, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, names: names, logger: logger}
}

type walletResponse struct {
	domain.WalletState
	Network string   `json:"network"`
	Wallets []string `json:"wallets,omitempty"`
}

func (h *WalletHandler) response(st domain.WalletState) walletResponse {
	resp := walletResponse{WalletState: st, Network: st.NetworkName()}
	if h.names != nil {
		resp.Wallets = h.names()
	}
	return resp
}

// GetWallet returns the current wallet state and the connectable wallets.
// GET /api/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response(h.wallet.State()))
}

type connectRequest struct {
	Wallet string `json:"wallet"`
}

// Connect enables a wallet by name. A failure carries the classified
// message in the state's error field alongside the status code.
// POST /api/wallet/connect
func (h *WalletHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Wallet) == "" {
		writeError(w, http.StatusBadRequest, "wallet is required")
		return
	}

	st, err := h.wallet.Connect(r.Context(), req.Wallet)
	if err != nil {
		status := statusFor(err)
		h.logger.WarnContext(r.Context(), "handler: wallet connect failed",
			slog.String("wallet", req.Wallet),
			slog.String("error", err.Error()),
		)
		writeJSON(w, status, h.response(st))
		return
	}
	writeJSON(w, http.StatusOK, h.response(st))
}

// Disconnect resets the wallet state.
// POST /api/wallet/disconnect
func (h *WalletHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response(h.wallet.Disconnect(r.Context())))
}

// Refresh re-reads the balance. On failure the previous values are returned
// with the error set.
// POST /api/wallet/refresh
func (h *WalletHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	st, err := h.wallet.Refresh(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: wallet refresh failed", slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), h.response(st))
		return
	}
	writeJSON(w, http.StatusOK, h.response(st))
}
