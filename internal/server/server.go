// Package server assembles the dashboard REST API and WebSocket endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/server/handler"
	"github.com/alanyoungcy/cardanodash/internal/server/middleware"
	"github.com/alanyoungcy/cardanodash/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per RateWindow per client IP. Zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers. A nil handler
// leaves its routes unregistered.
type Handlers struct {
	Health     *handler.HealthHandler
	Status     *handler.StatusHandler
	Markets    *handler.MarketHandler
	Arb        *handler.ArbHandler
	Strategies *handler.StrategyHandler
	Positions  *handler.PositionHandler
	Wallet     *handler.WalletHandler
	Trades     *handler.TradeHandler
	Archive    *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server for the dashboard.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in CORS, logging, rate
// limiting and auth, outermost first. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "http_server"))

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           Routes(cfg, handlers, wsHub, limiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// Routes builds the routed and wrapped handler without binding a listener.
func Routes(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	if h := handlers.Health; h != nil {
		mux.HandleFunc("GET /api/health", h.HealthCheck)
	}
	if h := handlers.Status; h != nil {
		mux.HandleFunc("GET /api/status", h.GetStatus)
	}

	if h := handlers.Markets; h != nil {
		mux.HandleFunc("GET /api/markets", h.ListMarkets)
		mux.HandleFunc("GET /api/markets/{symbol}", h.GetMarket)
		mux.HandleFunc("GET /api/quotes", h.Quotes)
	}

	if h := handlers.Arb; h != nil {
		mux.HandleFunc("GET /api/arbitrage/opportunities", h.ListOpportunities)
		mux.HandleFunc("GET /api/arbitrage/opportunities/{id}", h.GetOpportunity)
		mux.HandleFunc("POST /api/arbitrage/scan", h.Scan)
		mux.HandleFunc("GET /api/arbitrage/profit", h.Profit)
		mux.HandleFunc("POST /api/arbitrage/execute/{id}", h.Execute)
	}

	if h := handlers.Strategies; h != nil {
		mux.HandleFunc("GET /api/strategies", h.ListStrategies)
		mux.HandleFunc("POST /api/strategies", h.CreateStrategy)
		mux.HandleFunc("PUT /api/strategies/{id}", h.UpdateStrategy)
		mux.HandleFunc("DELETE /api/strategies/{id}", h.DeleteStrategy)
		mux.HandleFunc("POST /api/strategies/{id}/toggle", h.ToggleStrategy)
	}

	if h := handlers.Positions; h != nil {
		mux.HandleFunc("GET /api/positions", h.ListPositions)
		mux.HandleFunc("POST /api/positions", h.AddPosition)
		mux.HandleFunc("POST /api/positions/{id}/toggle", h.TogglePosition)
		mux.HandleFunc("DELETE /api/positions/{id}", h.RemovePosition)
	}

	if h := handlers.Wallet; h != nil {
		mux.HandleFunc("GET /api/wallet", h.GetWallet)
		mux.HandleFunc("POST /api/wallet/connect", h.Connect)
		mux.HandleFunc("POST /api/wallet/disconnect", h.Disconnect)
		mux.HandleFunc("POST /api/wallet/refresh", h.Refresh)
	}

	if h := handlers.Trades; h != nil {
		mux.HandleFunc("GET /api/trades", h.ListTrades)
	}
	if h := handlers.Archive; h != nil {
		mux.HandleFunc("POST /api/archive", h.TriggerArchive)
		mux.HandleFunc("GET /api/archive", h.ListArchives)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health")(h)
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger, "/api/health", "/ws")(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Run starts the server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
