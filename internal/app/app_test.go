package app

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/alanyoungcy/cardanodash/internal/arbitrage"
	"github.com/alanyoungcy/cardanodash/internal/config"
	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/feed"
	"github.com/alanyoungcy/cardanodash/internal/pipeline"
	"github.com/alanyoungcy/cardanodash/internal/server"
	"github.com/alanyoungcy/cardanodash/internal/server/ws"
	"github.com/alanyoungcy/cardanodash/internal/service"
)

func testApp(mode, cron string) *App {
	cfg := config.Defaults()
	cfg.Mode = mode
	cfg.Archive.Cron = cron
	return New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fullComponents() *components {
	return &components{
		market:   &service.MarketService{},
		position: &service.PositionService{},
		detector: &arbitrage.Detector{},
		ticker:   &feed.TickerFeed{},
		archiver: &pipeline.Archiver{},
		hub:      &ws.Hub{},
		http:     &server.Server{},
	}
}

func TestTasksPerMode(t *testing.T) {
	tests := []struct {
		mode string
		cron string
		want []string
	}{
		{"server", "", []string{"market_pollers", "binance_ticker", "ws_hub", "http_server"}},
		{"scan", "", []string{"market_pollers", "binance_ticker", "arbitrage_detector"}},
		{"archive", "0 3 * * *", []string{"archiver"}},
		{"archive", "", nil},
		{"full", "0 3 * * *", []string{
			"market_pollers", "binance_ticker", "arbitrage_detector",
			"position_revalue", "archiver", "ws_hub", "http_server",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.cron, func(t *testing.T) {
			a := testApp(tt.mode, tt.cron)
			orch, err := a.tasks(tt.mode, fullComponents())
			if err != nil {
				t.Fatalf("tasks: %v", err)
			}
			if got := orch.Tasks(); !slices.Equal(got, tt.want) {
				t.Errorf("tasks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTasksSkipMissingParts(t *testing.T) {
	a := testApp("full", "")
	c := &components{market: &service.MarketService{}, position: &service.PositionService{}}
	orch, err := a.tasks("full", c)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	want := []string{"market_pollers", "position_revalue"}
	if got := orch.Tasks(); !slices.Equal(got, want) {
		t.Errorf("tasks = %v, want %v", got, want)
	}
}

func TestTasksErrors(t *testing.T) {
	a := testApp("archive", "")
	if _, err := a.tasks("archive", &components{}); err == nil || !strings.Contains(err.Error(), "object storage") {
		t.Errorf("archive without storage: err = %v", err)
	}
	if _, err := a.tasks("trade", &components{}); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestNeedsS3(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "server"
	if needsS3(&cfg) {
		t.Error("server mode should not need s3")
	}
	cfg.Mode = "full"
	cfg.Archive.Enabled = false
	if needsS3(&cfg) {
		t.Error("full mode with archive disabled should not need s3")
	}
	cfg.Mode = "archive"
	if !needsS3(&cfg) {
		t.Error("archive mode needs s3")
	}
}

func TestBuildNotifierFiltersEvents(t *testing.T) {
	n := buildNotifier(config.NotifyConfig{
		DiscordWebhookURL: "https://discord.test/hook",
		Events:            []string{"trade.executed"},
	}, slog.Default())
	if !n.Enabled("trade.executed") || n.Enabled("wallet.changed") {
		t.Error("notifier should honour the configured events")
	}
}

func TestThresholdsFromConfig(t *testing.T) {
	if got := thresholds(config.Defaults().Arbitrage.Thresholds); got != arbitrage.DefaultThresholds() {
		t.Errorf("default config thresholds = %+v, want %+v", got, arbitrage.DefaultThresholds())
	}

	cfg := config.Defaults()
	cfg.Arbitrage.Thresholds.HighProfitPct = 4
	got := thresholds(cfg.Arbitrage.Thresholds)
	if got.HighProfitPct != 4 || got.MediumProfitPct != 1 {
		t.Errorf("thresholds = %+v", got)
	}
	// 3% net on deep, fresh volume is high under the defaults but not here.
	if c := got.ClassifyConfidence(3, 50_000, 0); c == domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want below high", c)
	}
}
