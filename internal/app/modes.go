package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/cardanodash/internal/arbitrage"
	s3blob "github.com/alanyoungcy/cardanodash/internal/blob/s3"
	"github.com/alanyoungcy/cardanodash/internal/config"
	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/executor"
	"github.com/alanyoungcy/cardanodash/internal/feed"
	"github.com/alanyoungcy/cardanodash/internal/pipeline"
	"github.com/alanyoungcy/cardanodash/internal/platform/binance"
	"github.com/alanyoungcy/cardanodash/internal/platform/coingecko"
	"github.com/alanyoungcy/cardanodash/internal/platform/defillama"
	"github.com/alanyoungcy/cardanodash/internal/poll"
	"github.com/alanyoungcy/cardanodash/internal/server"
	"github.com/alanyoungcy/cardanodash/internal/server/handler"
	"github.com/alanyoungcy/cardanodash/internal/server/ws"
	"github.com/alanyoungcy/cardanodash/internal/service"
	"github.com/alanyoungcy/cardanodash/internal/wallet"
)

// components holds the runnable parts built from Dependencies. Parts a mode
// or the configuration leaves out are nil.
type components struct {
	market   *service.MarketService
	arb      *service.ArbitrageService
	trade    *service.TradeService
	strategy *service.StrategyService
	position *service.PositionService
	wallet   *wallet.Provider
	detector *arbitrage.Detector
	ticker   *feed.TickerFeed
	archiver *pipeline.Archiver
	archives *s3blob.Reader
	hub      *ws.Hub
	http     *server.Server
}

// build constructs every service over deps.
func (a *App) build(deps *Dependencies) *components {
	cfg := a.cfg
	logger := a.logger
	c := &components{wallet: deps.Wallet}

	c.market = service.NewMarketService(deps.MarketCache, deps.MarketStore, deps.SignalBus, logger)
	a.addSources(c.market)

	if cfg.Binance.Enabled && len(cfg.Binance.Pairs) > 0 {
		stream := binance.New(cfg.Binance.WSURL, cfg.Binance.Pairs)
		c.ticker = feed.NewTickerFeed(stream, c.market.IngestLive,
			cfg.Binance.ReconnectBase.Duration, cfg.Binance.ReconnectMax.Duration, logger)
	}

	registry := arbitrage.NewRegistry(arbitrage.NewCrossVenue(arbitrage.CrossVenueConfig{
		MinProfitPct:  cfg.Arbitrage.MinProfitPct,
		MaxVolume:     cfg.Arbitrage.MaxVolume,
		FeePct:        cfg.Arbitrage.FeePct,
		DefaultFeePct: cfg.Arbitrage.DefaultFeePct,
		TTL:           cfg.Arbitrage.TTL.Duration,
		Thresholds:    thresholds(cfg.Arbitrage.Thresholds),
	}, logger))
	c.arb = service.NewArbitrageService(
		deps.MarketCache, deps.OpportunityStore, deps.TradeStore, deps.LockManager,
		deps.SignalBus, deps.AuditStore, deps.Notifier, registry,
		service.ArbitrageConfig{
			Strategies:    cfg.Arbitrage.Strategies,
			MinProfitPct:  cfg.Arbitrage.MinProfitPct,
			MinConfidence: domain.Confidence(strings.ToLower(cfg.Arbitrage.MinConfidence)),
			LockTTL:       cfg.Arbitrage.LockTTL.Duration,
		},
		logger,
	)
	if cfg.Arbitrage.Enabled {
		c.detector = arbitrage.NewDetector(arbitrage.DetectorConfig{
			Scanner:  c.arb,
			Bus:      deps.SignalBus,
			Interval: cfg.Arbitrage.ScanInterval.Duration,
			MinGap:   cfg.Arbitrage.MinGap.Duration,
			Logger:   logger,
		})
	}

	if deps.Wallet != nil {
		risk := service.NewRiskService(deps.MarketCache, service.RiskConfig{
			MaxTradeAmount: cfg.Arbitrage.MaxTradeAmount,
			MaxRiskScore:   cfg.Arbitrage.MaxRiskScore,
			MaxSlippageBps: cfg.Arbitrage.MaxSlippageBps,
			MinBalanceADA:  cfg.Arbitrage.MinBalanceADA,
		}, logger)
		exec := executor.New(executor.Config{
			FeeLovelace: cfg.Trade.FeeLovelace,
			Submit:      cfg.Trade.Submit,
			DedupTTL:    cfg.Trade.DedupTTL.Duration,
		}, logger)
		c.trade = service.NewTradeService(
			deps.OpportunityStore, deps.TradeStore, deps.Wallet, exec, risk,
			deps.RateLimiter, deps.SignalBus, deps.AuditStore, deps.Notifier,
			service.TradeConfig{
				RateLimit:     cfg.Trade.RateLimit,
				RateWindow:    cfg.Trade.RateWindow.Duration,
				DefaultAmount: cfg.Trade.DefaultAmount,
			},
			logger,
		)
	}

	c.strategy = service.NewStrategyService(deps.StrategyStore, deps.SignalBus, deps.AuditStore,
		cfg.Position.StrategyTTL.Duration, logger)
	c.position = service.NewPositionService(deps.PositionStore, deps.MarketCache, deps.SignalBus,
		deps.AuditStore, deps.Notifier, service.PositionConfig{
			DailyTurnover:   cfg.Position.DailyTurnover,
			RevalueInterval: cfg.Position.RevalueInterval.Duration,
		}, logger)

	if deps.Archiver != nil {
		c.archiver = pipeline.NewArchiver(deps.Archiver, cfg.Archive.RetentionDays, logger)
		c.archives = deps.Archives
	}

	mode := strings.ToLower(cfg.Mode)
	if cfg.Server.Enabled && (mode == "server" || mode == "full") {
		c.hub = ws.NewHub(deps.SignalBus, logger, ws.Config{
			Mode:           cfg.Mode,
			StartedAt:      a.startedAt,
			AllowedOrigins: cfg.Server.CORSOrigins,
		})
		c.http = server.NewServer(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKey:      cfg.Server.APIKey,
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow.Duration,
		}, a.handlers(deps, c), c.hub, deps.RateLimiter, logger)
	}
	return c
}

// addSources registers one poller per enabled REST market source.
func (a *App) addSources(market *service.MarketService) {
	cfg := a.cfg
	base := poll.Config{
		MinInterval:       cfg.Poll.MinInterval.Duration,
		MaxRetries:        cfg.Poll.MaxRetries,
		ReconnectInterval: cfg.Poll.ReconnectInterval.Duration,
		TTL:               cfg.Poll.CacheTTL.Duration,
	}

	if cfg.CoinGecko.Enabled {
		client := coingecko.New(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.CoinGecko.CoinIDs,
			cfg.CoinGecko.Currency, cfg.CoinGecko.Timeout.Duration)
		pc := base
		pc.Interval = cfg.CoinGecko.Interval.Duration
		market.AddSource(service.NewCoinGeckoSource(client), pc)
	}
	if cfg.DefiLlama.Enabled {
		client := defillama.New(cfg.DefiLlama.APIURL, cfg.DefiLlama.CoinsURL, cfg.DefiLlama.Chain,
			defillama.Heuristics{
				VolumeFraction: cfg.DefiLlama.VolumeFraction,
				MarketCapMult:  cfg.DefiLlama.MarketCapMult,
			}, cfg.DefiLlama.Timeout.Duration)
		pc := base
		pc.Interval = cfg.DefiLlama.Interval.Duration
		market.AddSource(service.NewDefiLlamaSource(client, cfg.DefiLlama.Quotes), pc)
	}
}

// handlers builds the REST handlers. Interfaces are only filled from non-nil
// components so a missing part leaves its routes unregistered.
func (a *App) handlers(deps *Dependencies, c *components) server.Handlers {
	logger := a.logger
	h := server.Handlers{
		Health:     handler.NewHealthHandler(deps.Checks, logger),
		Markets:    handler.NewMarketHandler(c.market, logger),
		Strategies: handler.NewStrategyHandler(c.strategy, logger),
		Positions:  handler.NewPositionHandler(c.position, logger),
	}

	var wallets handler.WalletStater
	if c.wallet != nil {
		wallets = c.wallet
		h.Wallet = handler.NewWalletHandler(c.wallet, c.wallet.Wallets().Names, logger)
	}
	var clients func() int
	if c.hub != nil {
		clients = c.hub.ClientCount
	}
	h.Status = handler.NewStatusHandler(a.cfg.Mode, a.startedAt, c.market, wallets, clients)

	if c.trade != nil {
		h.Arb = handler.NewArbHandler(c.arb, c.trade, logger)
		h.Trades = handler.NewTradeHandler(c.trade, logger)
	}
	if c.archiver != nil {
		var objects handler.ArchiveLister
		if c.archives != nil {
			objects = c.archives
		}
		h.Archive = handler.NewArchiveHandler(c.archiver, objects, logger)
	}
	return h
}

// tasks assembles the long-running tasks of mode.
func (a *App) tasks(mode string, c *components) (*pipeline.Orchestrator, error) {
	orch := pipeline.NewOrchestrator(a.logger)

	polling := func() {
		orch.Add("market_pollers", c.market.Run)
		if c.ticker != nil {
			orch.Add("binance_ticker", c.ticker.Run)
		}
	}
	serving := func() {
		if c.hub != nil {
			orch.Add("ws_hub", c.hub.Run)
		}
		if c.http != nil {
			orch.Add("http_server", c.http.Run)
		}
	}
	scanning := func() {
		if c.detector != nil {
			orch.Add("arbitrage_detector", c.detector.Run)
		}
	}

	switch mode {
	case "server":
		polling()
		serving()
	case "scan":
		polling()
		scanning()
	case "archive":
		if c.archiver == nil {
			return nil, fmt.Errorf("app: archive mode needs object storage")
		}
		if a.cfg.Archive.Cron != "" {
			cron := a.cfg.Archive.Cron
			orch.Add("archiver", func(ctx context.Context) error { return c.archiver.RunCron(ctx, cron) })
		}
	case "full":
		polling()
		scanning()
		orch.Add("position_revalue", c.position.Run)
		if c.archiver != nil && a.cfg.Archive.Cron != "" {
			cron := a.cfg.Archive.Cron
			orch.Add("archiver", func(ctx context.Context) error { return c.archiver.RunCron(ctx, cron) })
		}
		serving()
	default:
		return nil, fmt.Errorf("app: unsupported mode %q", mode)
	}
	return orch, nil
}

// restoreWallet reconnects the last session's wallet. Failure is logged; the
// user can reconnect from the dashboard.
func (a *App) restoreWallet(ctx context.Context, c *components) {
	if c.wallet == nil || !a.cfg.Wallet.AutoConnect {
		return
	}
	st, err := c.wallet.Restore(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "app: wallet restore failed", slog.String("error", err.Error()))
		return
	}
	if st.Connected {
		a.logger.InfoContext(ctx, "app: wallet restored",
			slog.String("wallet", st.WalletName),
			slog.String("network", st.NetworkName()),
		)
	}
}

// archiveOnce runs a single archive pass for the one-shot archive mode.
func (a *App) archiveOnce(ctx context.Context, c *components) error {
	report, err := c.archiver.Run(ctx)
	a.logger.InfoContext(ctx, "app: archive pass finished",
		slog.Time("cutoff", report.Cutoff),
		slog.Int64("trades", report.Trades),
		slog.Int64("opportunities", report.Opportunities),
		slog.Int64("audit", report.Audit),
	)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	return nil
}

// thresholds maps the config tiers onto the classifier. An all-zero section
// leaves the classifier defaults in place.
func thresholds(c config.ThresholdsConfig) arbitrage.Thresholds {
	return arbitrage.Thresholds{
		HighProfitPct:    c.HighProfitPct,
		MediumProfitPct:  c.MediumProfitPct,
		HighVolume:       c.HighVolume,
		MediumVolume:     c.MediumVolume,
		StaleAfter:       c.StaleAfter.Duration,
		SuspectProfitPct: c.SuspectProfitPct,
	}
}
