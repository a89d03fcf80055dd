package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/executor"
	"github.com/alanyoungcy/cardanodash/internal/notify"
)

// WalletSource exposes the connected wallet.
type WalletSource interface {
	State() domain.WalletState
}

// TradeExecutor runs the legs of one opportunity.
type TradeExecutor interface {
	Execute(ctx context.Context, api domain.WalletAPI, opp domain.ArbitrageOpportunity, amount float64) (domain.TradeResult, error)
}

var _ TradeExecutor = (*executor.Executor)(nil)

// TradeConfig limits how often one wallet may execute.
type TradeConfig struct {
	RateLimit  int
	RateWindow time.Duration
	// DefaultAmount is used when a request does not name an amount. Zero
	// means the opportunity's full available volume.
	DefaultAmount float64
}

// TradeService executes stored opportunities with the connected wallet and
// keeps the trade history.
type TradeService struct {
	opps     domain.OpportunityStore
	trades   domain.TradeStore
	wallets  WalletSource
	exec     TradeExecutor
	risk     *RiskService
	limiter  domain.RateLimiter
	bus      domain.SignalBus
	auditLog domain.AuditStore
	notifier Notifier
	cfg      TradeConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewTradeService creates a TradeService. risk, limiter, bus, auditLog and
// notifier may be nil.
func NewTradeService(
	opps domain.OpportunityStore,
	trades domain.TradeStore,
	wallets WalletSource,
	exec TradeExecutor,
	risk *RiskService,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	auditLog domain.AuditStore,
	notifier Notifier,
	cfg TradeConfig,
	logger *slog.Logger,
) *TradeService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimit > 0 && cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &TradeService{
		opps:     opps,
		trades:   trades,
		wallets:  wallets,
		exec:     exec,
		risk:     risk,
		limiter:  limiter,
		bus:      bus,
		auditLog: auditLog,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "trade_service")),
		now:      time.Now,
	}
}

// WithClock overrides the record timestamp clock.
func (s *TradeService) WithClock(now func() time.Time) *TradeService {
	s.now = now
	return s
}

// Execute runs opportunity oppID for amount units. A rejection before the
// first leg returns an error and records nothing. A leg failure is not an
// error: the returned record carries the partial or failed status.
func (s *TradeService) Execute(ctx context.Context, oppID string, amount float64) (domain.TradeRecord, error) {
	ws := s.wallets.State()
	if !ws.Connected || ws.API == nil {
		return domain.TradeRecord{}, fmt.Errorf("trade_service: execute: %w", domain.ErrWalletNotConnected)
	}

	if s.limiter != nil && s.cfg.RateLimit > 0 {
		ok, err := s.limiter.Allow(ctx, "trade:"+ws.Address, s.cfg.RateLimit, s.cfg.RateWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "trade_service: rate limiter failed",
				slog.String("error", err.Error()),
			)
		} else if !ok {
			return domain.TradeRecord{}, fmt.Errorf("trade_service: execute: %w", domain.ErrRateLimited)
		}
	}

	opp, err := s.opps.GetByID(ctx, oppID)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("trade_service: execute: get %s: %w", oppID, err)
	}
	if opp.Executed {
		return domain.TradeRecord{}, fmt.Errorf("trade_service: execute: %w: opportunity %s already executed", domain.ErrDuplicate, oppID)
	}
	if amount <= 0 {
		amount = s.cfg.DefaultAmount
	}
	if amount <= 0 || (opp.VolumeAvailable > 0 && amount > opp.VolumeAvailable) {
		amount = opp.VolumeAvailable
	}

	if s.risk != nil {
		if err := s.risk.PreTradeCheck(ctx, opp, amount, ws); err != nil {
			audit(ctx, s.auditLog, s.logger, "trade.rejected", map[string]any{
				"opportunity_id": opp.ID,
				"reason":         err.Error(),
			})
			return domain.TradeRecord{}, err
		}
	}

	res, err := s.exec.Execute(ctx, ws.API, opp, amount)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("trade_service: execute: %w", err)
	}

	rec := s.record(opp, amount, res, ws.Address)
	if err := s.trades.Insert(ctx, rec); err != nil {
		// The legs already ran, so the caller still gets the record.
		s.logger.ErrorContext(ctx, "trade_service: insert trade failed",
			slog.String("trade_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
	if res.BuyTxID != "" {
		if err := s.opps.MarkExecuted(ctx, opp.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "trade_service: mark executed failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	publish(ctx, s.bus, s.logger, domain.ChannelTrade, event{Event: "trade", Data: rec})
	audit(ctx, s.auditLog, s.logger, "trade."+string(rec.Status), map[string]any{
		"trade_id":       rec.ID,
		"opportunity_id": rec.OpportunityID,
		"amount":         rec.Amount,
		"profit_ada":     rec.ProfitADA,
		"buy_tx_id":      rec.BuyTxID,
		"sell_tx_id":     rec.SellTxID,
		"error":          rec.Error,
	})
	evt, title, msg := notify.TradeMessage(rec)
	sendNotify(ctx, s.notifier, s.logger, evt, title, msg)

	s.logger.InfoContext(ctx, "trade_service: trade executed",
		slog.String("trade_id", rec.ID),
		slog.String("opportunity_id", rec.OpportunityID),
		slog.String("status", string(rec.Status)),
		slog.Float64("profit_ada", rec.ProfitADA),
	)
	return rec, nil
}

func (s *TradeService) record(opp domain.ArbitrageOpportunity, amount float64, res domain.TradeResult, wallet string) domain.TradeRecord {
	rec := domain.TradeRecord{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		Pair:          opp.Pair,
		BuyVenue:      opp.BuyVenue,
		SellVenue:     opp.SellVenue,
		Amount:        amount,
		BuyPrice:      opp.BuyPrice,
		SellPrice:     opp.SellPrice,
		Status:        res.Status,
		BuyTxID:       res.BuyTxID,
		SellTxID:      res.SellTxID,
		Error:         res.Error,
		Wallet:        wallet,
		CreatedAt:     s.now().UTC(),
	}
	// Only a completed round trip realises the spread.
	if res.Status == domain.TradeSuccess {
		_, rec.ProfitADA = domain.OpportunityProfit(opp.BuyPrice, opp.SellPrice, amount)
	}
	return rec
}

// List returns trade history for wallet, or for every wallet when empty.
func (s *TradeService) List(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	recs, err := s.trades.List(ctx, wallet, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list: %w", err)
	}
	return recs, nil
}
