package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// RiskConfig holds the tunable parameters for pre-trade risk checks. A zero
// limit disables its check.
type RiskConfig struct {
	// MaxTradeAmount caps amount * buy price.
	MaxTradeAmount float64
	MaxRiskScore   float64
	MaxSlippageBps float64
	// MinBalanceADA is the wallet balance kept back for fees.
	MinBalanceADA float64
}

// RiskService runs pre-trade checks so a simulated execution stays within
// configured limits.
type RiskService struct {
	cache  domain.MarketCache
	cfg    RiskConfig
	logger *slog.Logger
}

// NewRiskService creates a RiskService. cache may be nil, which disables the
// slippage check.
func NewRiskService(cache domain.MarketCache, cfg RiskConfig, logger *slog.Logger) *RiskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskService{
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "risk_service")),
	}
}

// PreTradeCheck validates an execution of amount units of opp from wallet.
// It returns an error wrapping domain.ErrRiskLimit for the first failed
// check, or nil if all checks pass.
//
// Checks performed:
//  1. Trade size within limits
//  2. Opportunity risk score within limits
//  3. Wallet balance above the reserve
//  4. Venue prices have not slipped since detection
func (s *RiskService) PreTradeCheck(ctx context.Context, opp domain.ArbitrageOpportunity, amount float64, wallet domain.WalletState) error {
	notional := amount * opp.BuyPrice
	if s.cfg.MaxTradeAmount > 0 && notional > s.cfg.MaxTradeAmount {
		s.logger.WarnContext(ctx, "risk_service: trade amount exceeds limit",
			slog.String("opportunity", opp.ID),
			slog.Float64("amount", notional),
			slog.Float64("max", s.cfg.MaxTradeAmount),
		)
		return fmt.Errorf("risk_service: trade amount %.2f exceeds max %.2f: %w", notional, s.cfg.MaxTradeAmount, domain.ErrRiskLimit)
	}

	if s.cfg.MaxRiskScore > 0 && opp.RiskScore > s.cfg.MaxRiskScore {
		s.logger.WarnContext(ctx, "risk_service: risk score exceeds limit",
			slog.String("opportunity", opp.ID),
			slog.Float64("risk_score", opp.RiskScore),
			slog.Float64("max", s.cfg.MaxRiskScore),
		)
		return fmt.Errorf("risk_service: risk score %.3f exceeds max %.3f: %w", opp.RiskScore, s.cfg.MaxRiskScore, domain.ErrRiskLimit)
	}

	if s.cfg.MinBalanceADA > 0 {
		if bal := wallet.Balance.InexactFloat64(); bal < s.cfg.MinBalanceADA {
			s.logger.WarnContext(ctx, "risk_service: wallet balance below reserve",
				slog.String("wallet", wallet.Address),
				slog.Float64("balance", bal),
				slog.Float64("min", s.cfg.MinBalanceADA),
			)
			return fmt.Errorf("risk_service: balance %.6f below reserve %.6f: %w", bal, s.cfg.MinBalanceADA, domain.ErrRiskLimit)
		}
	}

	if s.cfg.MaxSlippageBps <= 0 || s.cache == nil {
		return nil
	}
	snaps, err := s.cache.Snapshots(ctx, opp.Pair)
	if err != nil {
		// Without current quotes there is nothing to compare against.
		s.logger.WarnContext(ctx, "risk_service: could not fetch quotes for slippage check",
			slog.String("pair", opp.Pair),
			slog.String("error", err.Error()),
		)
		return nil
	}

	for _, snap := range domain.LatestSnapshots(snaps) {
		var slippageBps float64
		switch {
		case strings.EqualFold(snap.Venue, opp.BuyVenue) && opp.BuyPrice > 0:
			// Paying more on the buy venue than at detection.
			slippageBps = (snap.Price - opp.BuyPrice) / opp.BuyPrice * 10_000
		case strings.EqualFold(snap.Venue, opp.SellVenue) && opp.SellPrice > 0:
			// Receiving less on the sell venue than at detection.
			slippageBps = (opp.SellPrice - snap.Price) / opp.SellPrice * 10_000
		default:
			continue
		}
		if slippageBps > s.cfg.MaxSlippageBps {
			s.logger.WarnContext(ctx, "risk_service: slippage exceeds limit",
				slog.String("opportunity", opp.ID),
				slog.String("venue", snap.Venue),
				slog.Float64("slippage_bps", slippageBps),
				slog.Float64("max_slippage_bps", s.cfg.MaxSlippageBps),
			)
			return fmt.Errorf("risk_service: slippage %.1f bps on %s exceeds max %.1f bps: %w",
				slippageBps, snap.Venue, s.cfg.MaxSlippageBps, domain.ErrRiskLimit)
		}
	}
	return nil
}
