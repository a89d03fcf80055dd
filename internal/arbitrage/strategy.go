// Package arbitrage finds cross-venue price gaps in cached price snapshots and
// triggers scans when fresh market data arrives.
package arbitrage

import (
	"context"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// Strategy detects opportunities for one pair from the latest snapshot per
// venue.
type Strategy interface {
	Name() string
	// Detect receives snapshots of pair, at most one per venue.
	Detect(ctx context.Context, pair string, snaps []domain.PriceSnapshot, now time.Time) ([]domain.ArbitrageOpportunity, error)
}
