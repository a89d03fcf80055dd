package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence is the tier attached to a detected opportunity.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders tiers so that filters can compare them: low=1, medium=2, high=3.
// Unknown tiers rank 0.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c is the same tier as min or better.
func (c Confidence) AtLeast(min Confidence) bool {
	return c.Rank() >= min.Rank()
}

// ParseConfidence accepts "high", "medium" or "low" in any case.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if c.Rank() == 0 {
		return "", fmt.Errorf("domain: unknown confidence %q", s)
	}
	return c, nil
}

// ArbitrageOpportunity is a cross-venue price gap for one pair.
type ArbitrageOpportunity struct {
	ID              string     `json:"id"`
	Pair            string     `json:"pair"`
	BuyVenue        string     `json:"buy_venue"`
	SellVenue       string     `json:"sell_venue"`
	BuyPrice        float64    `json:"buy_price"`
	SellPrice       float64    `json:"sell_price"`
	ProfitPct       float64    `json:"profit_pct"`
	ProfitADA       float64    `json:"profit_ada"`
	Confidence      Confidence `json:"confidence"`
	VolumeAvailable float64    `json:"volume_available"`
	RiskScore       float64    `json:"risk_score"`
	DetectedAt      time.Time  `json:"detected_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Executable      bool       `json:"executable"`
	Executed        bool       `json:"executed"`
}

// OpportunityProfit returns the profit percentage and the absolute profit in
// ADA, before fees, for buying volume units at buy and selling at sell.
//
//	pct = (sell - buy) / buy * 100
//	ada = (sell - buy) * volume
func OpportunityProfit(buy, sell, volume float64) (pct, ada float64) {
	b := decimal.NewFromFloat(buy)
	s := decimal.NewFromFloat(sell)
	if b.IsZero() {
		return 0, 0
	}
	spread := s.Sub(b)
	pct = spread.Div(b).Mul(decimal.NewFromInt(100)).InexactFloat64()
	ada = spread.Mul(decimal.NewFromFloat(volume)).InexactFloat64()
	return pct, ada
}

// NewOpportunity builds an opportunity with profit fields derived from the
// prices and volume so they are internally consistent.
func NewOpportunity(id, pair, buyVenue, sellVenue string, buy, sell, volume float64, detectedAt time.Time, ttl time.Duration) ArbitrageOpportunity {
	pct, ada := OpportunityProfit(buy, sell, volume)
	return ArbitrageOpportunity{
		ID:              id,
		Pair:            pair,
		BuyVenue:        buyVenue,
		SellVenue:       sellVenue,
		BuyPrice:        buy,
		SellPrice:       sell,
		ProfitPct:       pct,
		ProfitADA:       ada,
		VolumeAvailable: volume,
		DetectedAt:      detectedAt,
		ExpiresAt:       detectedAt.Add(ttl),
	}
}

// Validate checks the internal consistency of the profit fields. A positive
// profit requires sell > buy, and the stored percentage has to agree with the
// prices within a small tolerance.
func (o ArbitrageOpportunity) Validate() error {
	if o.BuyPrice <= 0 || o.SellPrice <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrInvalidOpportunity)
	}
	if o.BuyVenue == o.SellVenue {
		return fmt.Errorf("%w: buy and sell venue are both %q", ErrInvalidOpportunity, o.BuyVenue)
	}
	if o.ProfitPct > 0 && o.SellPrice <= o.BuyPrice {
		return fmt.Errorf("%w: positive profit with sell %.6f <= buy %.6f", ErrInvalidOpportunity, o.SellPrice, o.BuyPrice)
	}
	if o.VolumeAvailable < 0 {
		return fmt.Errorf("%w: negative volume", ErrInvalidOpportunity)
	}
	pct, _ := OpportunityProfit(o.BuyPrice, o.SellPrice, o.VolumeAvailable)
	if diff := pct - o.ProfitPct; diff > 1e-6 || diff < -1e-6 {
		return fmt.Errorf("%w: profit_pct %.6f does not match prices (%.6f)", ErrInvalidOpportunity, o.ProfitPct, pct)
	}
	return nil
}

// Expired reports whether the opportunity's expiry estimate has passed.
func (o ArbitrageOpportunity) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

// Route identifies the gap independent of when it was detected.
func (o ArbitrageOpportunity) Route() string {
	return strings.ToUpper(o.Pair) + ":" + strings.ToLower(o.BuyVenue) + ">" + strings.ToLower(o.SellVenue)
}

// ArbProfitSummary aggregates executed arbitrage outcomes.
type ArbProfitSummary struct {
	Opportunities int64   `json:"opportunities"`
	Trades        int64   `json:"trades"`
	Successful    int64   `json:"successful"`
	Partial       int64   `json:"partial"`
	Failed        int64   `json:"failed"`
	TotalProfit   float64 `json:"total_profit_ada"`
}
