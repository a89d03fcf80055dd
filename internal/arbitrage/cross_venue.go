package arbitrage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// CrossVenueConfig configures the cross-venue strategy.
type CrossVenueConfig struct {
	// MinProfitPct is the net gap, after fees, below which nothing is reported.
	MinProfitPct float64
	// MaxVolume caps the volume an opportunity is sized for. Zero means no cap.
	MaxVolume float64
	// FeePct is the per-venue taker fee in percent. Missing venues use
	// DefaultFeePct.
	FeePct        map[string]float64
	DefaultFeePct float64
	TTL           time.Duration
	Thresholds    Thresholds
}

// CrossVenue reports buying on every venue quoting below another venue and
// selling on the dearer one.
type CrossVenue struct {
	cfg    CrossVenueConfig
	newID  func() string
	logger *slog.Logger
}

// NewCrossVenue creates the strategy.
func NewCrossVenue(cfg CrossVenueConfig, logger *slog.Logger) *CrossVenue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &CrossVenue{
		cfg:    cfg,
		newID:  func() string { return uuid.Must(uuid.NewRandom()).String() },
		logger: logger.With(slog.String("arb_strategy", "cross_venue")),
	}
}

// Name returns the strategy identifier.
func (s *CrossVenue) Name() string { return "cross_venue" }

func (s *CrossVenue) fee(venue string) float64 {
	if f, ok := s.cfg.FeePct[strings.ToLower(venue)]; ok {
		return f
	}
	return s.cfg.DefaultFeePct
}

// Detect compares every ordered venue pair.
func (s *CrossVenue) Detect(ctx context.Context, pair string, snaps []domain.PriceSnapshot, now time.Time) ([]domain.ArbitrageOpportunity, error) {
	var out []domain.ArbitrageOpportunity
	for _, buy := range snaps {
		for _, sell := range snaps {
			if buy.Venue == sell.Venue || buy.Price <= 0 || sell.Price <= buy.Price {
				continue
			}

			volume := minPositive(buy.Volume, sell.Volume)
			if s.cfg.MaxVolume > 0 && (volume == 0 || volume > s.cfg.MaxVolume) {
				volume = s.cfg.MaxVolume
			}

			opp := domain.NewOpportunity(s.newID(), pair, buy.Venue, sell.Venue, buy.Price, sell.Price, volume, now, s.cfg.TTL)
			net := opp.ProfitPct - s.fee(buy.Venue) - s.fee(sell.Venue)
			if net < s.cfg.MinProfitPct {
				continue
			}

			age := now.Sub(older(buy.Timestamp, sell.Timestamp))
			if age < 0 {
				age = 0
			}
			opp.Confidence = s.cfg.Thresholds.ClassifyConfidence(net, volume, age)
			opp.RiskScore = s.cfg.Thresholds.RiskScore(net, volume, age)
			opp.Executable = opp.Confidence != domain.ConfidenceLow && volume > 0

			s.logger.DebugContext(ctx, "cross venue opportunity",
				slog.String("pair", pair),
				slog.String("buy", buy.Venue),
				slog.String("sell", sell.Venue),
				slog.Float64("profit_pct", opp.ProfitPct),
				slog.Float64("net_pct", net),
				slog.String("confidence", string(opp.Confidence)),
			)
			out = append(out, opp)
		}
	}
	return out, nil
}

func older(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// minPositive returns the smaller of two volumes, ignoring zeros, which mean
// the venue did not report one.
func minPositive(a, b float64) float64 {
	switch {
	case a <= 0:
		return max(b, 0)
	case b <= 0:
		return a
	default:
		return min(a, b)
	}
}

var _ Strategy = (*CrossVenue)(nil)
