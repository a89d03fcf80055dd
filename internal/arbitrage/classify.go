package arbitrage

import (
	"math"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// Thresholds decide the confidence tier and risk score of an opportunity.
type Thresholds struct {
	HighProfitPct   float64
	MediumProfitPct float64
	HighVolume      float64
	MediumVolume    float64
	// StaleAfter is the snapshot age past which an opportunity is low
	// confidence regardless of size.
	StaleAfter time.Duration
	// SuspectProfitPct is a gap so wide it more likely means a bad quote.
	SuspectProfitPct float64
}

// DefaultThresholds returns the tiers used when config leaves them unset.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighProfitPct:    2.0,
		MediumProfitPct:  1.0,
		HighVolume:       10_000,
		MediumVolume:     1_000,
		StaleAfter:       60 * time.Second,
		SuspectProfitPct: 10,
	}
}

// ClassifyConfidence assigns a tier from the net profit, the tradable volume
// and the age of the older of the two quotes.
func (t Thresholds) ClassifyConfidence(netPct, volume float64, age time.Duration) domain.Confidence {
	if t.StaleAfter > 0 && age > t.StaleAfter {
		return domain.ConfidenceLow
	}
	if t.SuspectProfitPct > 0 && netPct >= t.SuspectProfitPct {
		return domain.ConfidenceLow
	}
	fresh := t.StaleAfter <= 0 || age <= t.StaleAfter/2
	switch {
	case netPct >= t.HighProfitPct && volume >= t.HighVolume && fresh:
		return domain.ConfidenceHigh
	case netPct >= t.MediumProfitPct && volume >= t.MediumVolume:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// RiskScore is in [0, 1]; higher is riskier. Staleness and thin volume weigh
// most, and an unusually wide gap adds the rest.
func (t Thresholds) RiskScore(netPct, volume float64, age time.Duration) float64 {
	var staleness, thinness, width float64
	if t.StaleAfter > 0 {
		staleness = math.Min(float64(age)/float64(t.StaleAfter), 1)
	}
	if t.HighVolume > 0 {
		thinness = 1 - math.Min(volume/t.HighVolume, 1)
	}
	if t.SuspectProfitPct > 0 {
		width = math.Min(math.Max(netPct, 0)/t.SuspectProfitPct, 1)
	}
	score := 0.4*staleness + 0.4*thinness + 0.2*width
	return math.Round(score*1000) / 1000
}
