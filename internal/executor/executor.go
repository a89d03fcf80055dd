// Package executor walks the simulated two-leg arbitrage execution: a buy leg
// and then a sell leg, each a placeholder transaction signed by the wallet.
package executor

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/crypto"
	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/wallet"
)

// Side of a leg.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Leg is one half of an arbitrage execution.
type Leg struct {
	OpportunityID string
	Pair          string
	Side          Side
	Venue         string
	Price         float64
	Amount        float64
}

// Config controls the executor.
type Config struct {
	// FeeLovelace is written into every placeholder body.
	FeeLovelace uint64
	// Submit sends signed placeholders to the wallet. When false the body
	// hash stands in for the tx id.
	Submit bool
	// DedupTTL is how long an executed opportunity is refused.
	DedupTTL time.Duration
}

// Executor runs arbitrage legs in order and stops at the first failure.
type Executor struct {
	cfg    Config
	dedup  *Dedup
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Executor.
func New(cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	if cfg.FeeLovelace == 0 {
		cfg.FeeLovelace = 170_000
	}
	return &Executor{
		cfg:    cfg,
		dedup:  NewDedup(cfg.DedupTTL, nil),
		logger: logger.With(slog.String("component", "executor")),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for expiry and dedup.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	e.dedup = NewDedup(e.cfg.DedupTTL, now)
	return e
}

// Legs splits opp into its buy and sell legs.
func Legs(opp domain.ArbitrageOpportunity, amount float64) []Leg {
	return []Leg{
		{OpportunityID: opp.ID, Pair: opp.Pair, Side: SideBuy, Venue: opp.BuyVenue, Price: opp.BuyPrice, Amount: amount},
		{OpportunityID: opp.ID, Pair: opp.Pair, Side: SideSell, Venue: opp.SellVenue, Price: opp.SellPrice, Amount: amount},
	}
}

// Execute runs both legs of opp with api. The error is non-nil only when the
// attempt was rejected before the first leg; leg failures are reported in
// the result, with Partial set when the buy went through and the sell did not.
func (e *Executor) Execute(ctx context.Context, api domain.WalletAPI, opp domain.ArbitrageOpportunity, amount float64) (domain.TradeResult, error) {
	if api == nil {
		return domain.TradeResult{}, domain.ErrWalletNotConnected
	}
	if err := opp.Validate(); err != nil {
		return domain.TradeResult{}, err
	}
	if opp.Expired(e.now()) {
		return domain.TradeResult{}, fmt.Errorf("%w: %s", domain.ErrOpportunityExpired, opp.ID)
	}
	if amount <= 0 {
		return domain.TradeResult{}, fmt.Errorf("%w: amount must be > 0", domain.ErrInvalidOpportunity)
	}
	if opp.VolumeAvailable > 0 && amount > opp.VolumeAvailable {
		return domain.TradeResult{}, fmt.Errorf("%w: amount %.6f exceeds available volume %.6f", domain.ErrInvalidOpportunity, amount, opp.VolumeAvailable)
	}
	if e.dedup.IsDuplicate(opp.ID) {
		return domain.TradeResult{}, fmt.Errorf("%w: opportunity %s", domain.ErrDuplicate, opp.ID)
	}

	log := e.logger.With(
		slog.String("opportunity_id", opp.ID),
		slog.String("pair", opp.Pair),
		slog.Float64("amount", amount),
	)

	var txIDs []string
	for _, leg := range Legs(opp, amount) {
		txID, err := e.runLeg(ctx, api, leg)
		if err != nil {
			log.WarnContext(ctx, "leg failed",
				slog.String("side", string(leg.Side)),
				slog.String("venue", leg.Venue),
				slog.String("error", err.Error()),
			)
			if len(txIDs) == 0 {
				// Nothing went on chain, so the opportunity may be retried.
				e.dedup.Forget(opp.ID)
			}
			return e.result(txIDs, err), nil
		}
		log.InfoContext(ctx, "leg executed",
			slog.String("side", string(leg.Side)),
			slog.String("venue", leg.Venue),
			slog.String("tx_id", txID),
		)
		txIDs = append(txIDs, txID)
	}
	return e.result(txIDs, nil), nil
}

func (e *Executor) result(txIDs []string, err error) domain.TradeResult {
	var res domain.TradeResult
	if len(txIDs) > 0 {
		res.BuyTxID = txIDs[0]
	}
	if len(txIDs) > 1 {
		res.SellTxID = txIDs[1]
	}
	switch {
	case err == nil:
		res.Success = true
		res.Status = domain.TradeSuccess
	case len(txIDs) > 0:
		res.Status = domain.TradePartial
		res.Partial = true
		res.Error = err.Error()
	default:
		res.Status = domain.TradeFailed
		res.Error = err.Error()
	}
	return res
}

// runLeg builds, signs and (optionally) submits one placeholder.
func (e *Executor) runLeg(ctx context.Context, api domain.WalletAPI, leg Leg) (string, error) {
	tx, err := PlaceholderTx(leg, e.cfg.FeeLovelace, 0)
	if err != nil {
		return "", err
	}
	txHex := hex.EncodeToString(tx)

	witness, err := api.SignTx(ctx, txHex, true)
	if err != nil {
		return "", fmt.Errorf("%s leg: sign: %w", leg.Side, err)
	}
	if witness == "" {
		return "", fmt.Errorf("%s leg: %w: empty witness set", leg.Side, domain.ErrSigningFailed)
	}
	signed, err := wallet.AssembleTx(txHex, witness)
	if err != nil {
		return "", fmt.Errorf("%s leg: assemble: %w", leg.Side, err)
	}

	if !e.cfg.Submit {
		body, err := wallet.TxBody(tx)
		if err != nil {
			return "", err
		}
		hash := crypto.TxHash(body)
		return hex.EncodeToString(hash[:]), nil
	}

	txID, err := api.SubmitTx(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("%s leg: submit: %w", leg.Side, err)
	}
	if txID == "" {
		return "", fmt.Errorf("%s leg: submit: empty tx id", leg.Side)
	}
	return txID, nil
}
