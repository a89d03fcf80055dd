package domain

import (
	"fmt"
	"math"
	"time"
)

// PositionStatus is the lifecycle state of a market-making position.
type PositionStatus string

const (
	PositionActive PositionStatus = "active"
	PositionPaused PositionStatus = "paused"
)

// Position is a simulated liquidity position on a DEX pool. There is no real
// settlement behind it.
type Position struct {
	ID              string         `json:"id"`
	Pair            string         `json:"pair"`
	Venue           string         `json:"venue"`
	Liquidity       float64        `json:"liquidity"`
	Spread          float64        `json:"spread"`
	Volume          float64        `json:"volume"`
	FeesEarned      float64        `json:"fees_earned"`
	ImpermanentLoss float64        `json:"impermanent_loss"`
	APY             float64        `json:"apy"`
	Status          PositionStatus `json:"status"`
	EntryPriceRatio float64        `json:"entry_price_ratio"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate checks a position before it is created.
func (p Position) Validate() error {
	if p.Pair == "" || p.Venue == "" {
		return fmt.Errorf("%w: pair and venue are required", ErrInvalidPosition)
	}
	if p.Liquidity <= 0 {
		return fmt.Errorf("%w: liquidity must be > 0", ErrInvalidPosition)
	}
	if p.Spread < 0 {
		return fmt.Errorf("%w: spread must be >= 0", ErrInvalidPosition)
	}
	return nil
}

// Toggled returns the position with active and paused swapped.
func (p Position) Toggled(now time.Time) Position {
	if p.Status == PositionActive {
		p.Status = PositionPaused
	} else {
		p.Status = PositionActive
	}
	p.UpdatedAt = now
	return p
}

// ImpermanentLossPct is the constant-product impermanent loss, as a positive
// percentage, for a pool whose price ratio moved by ratio (new/old).
func ImpermanentLossPct(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	il := 2*math.Sqrt(ratio)/(1+ratio) - 1
	return -il * 100
}

// EstimateAPY annualises fees earned on liquidity over the elapsed period.
func EstimateAPY(fees, liquidity float64, elapsed time.Duration) float64 {
	if liquidity <= 0 || elapsed <= 0 {
		return 0
	}
	years := elapsed.Hours() / (24 * 365)
	return fees / liquidity / years * 100
}
