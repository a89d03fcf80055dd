package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/cardanodash/internal/blob/s3"
	"github.com/alanyoungcy/cardanodash/internal/cache/redis"
	"github.com/alanyoungcy/cardanodash/internal/config"
	"github.com/alanyoungcy/cardanodash/internal/crypto"
	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/notify"
	"github.com/alanyoungcy/cardanodash/internal/platform/blockfrost"
	"github.com/alanyoungcy/cardanodash/internal/server/handler"
	"github.com/alanyoungcy/cardanodash/internal/store/postgres"
	"github.com/alanyoungcy/cardanodash/internal/store/sqlite"
	"github.com/alanyoungcy/cardanodash/internal/wallet"
)

// Dependencies bundles every infrastructure dependency that the application
// modes need. It is constructed by Wire and torn down by the returned cleanup
// function. Optional parts are nil when the mode does not need them.
type Dependencies struct {
	// Stores
	MarketStore      *postgres.MarketStore
	OpportunityStore *postgres.OpportunityStore
	TradeStore       *postgres.TradeStore
	AuditStore       *postgres.AuditStore
	StrategyStore    *postgres.StrategyStore
	PositionStore    *postgres.PositionStore
	SessionStore     domain.SessionStore

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Archiver copies aged history to object storage; Archives reads it back.
	Archiver domain.Archiver
	Archives *s3blob.Reader

	Chain    domain.ChainClient
	Wallet   *wallet.Provider
	Notifier *notify.Notifier

	// Checks feed the health endpoint, keyed by dependency name.
	Checks map[string]handler.Check
}

// needsS3 returns true for modes that archive to object storage.
func needsS3(cfg *config.Config) bool {
	switch strings.ToLower(cfg.Mode) {
	case "archive":
		return true
	case "full":
		return cfg.Archive.Enabled
	default:
		return false
	}
}

// needsWallet returns true for modes that serve the wallet API.
func needsWallet(mode string) bool {
	switch strings.ToLower(mode) {
	case "server", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Checks: map[string]handler.Check{}}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: postgres: %w", err))
	}
	closers = append(closers, pgClient.Close)
	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			return fail(fmt.Errorf("wire: postgres migrations: %w", err))
		}
	}
	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.StrategyStore = postgres.NewStrategyStore(pool)
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.Checks["postgres"] = pgClient.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		URL:        cfg.Redis.URL,
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: redis: %w", err))
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Redis.MarketTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient, logger)
	deps.Checks["redis"] = redisClient.Ping

	// --- S3 ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		reader := s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client), reader,
			deps.TradeStore, deps.OpportunityStore, deps.AuditStore,
		)
		deps.Archives = reader
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	deps.Notifier = buildNotifier(cfg.Notify, logger)

	// --- Chain + wallet ---
	if cfg.Blockfrost.ProjectID != "" {
		deps.Chain = blockfrost.New(cfg.Blockfrost.BaseURL, cfg.Blockfrost.ProjectID, cfg.Blockfrost.Timeout.Duration)
	}

	if needsWallet(cfg.Mode) {
		session, err := sqlite.Open(ctx, cfg.Session.Path)
		if err != nil {
			return fail(fmt.Errorf("wire: session store: %w", err))
		}
		closers = append(closers, func() { _ = session.Close() })
		deps.SessionStore = session

		wallets, destroy, err := buildWallets(cfg.Wallet, deps.Chain)
		if err != nil {
			return fail(fmt.Errorf("wire: wallets: %w", err))
		}
		closers = append(closers, destroy)

		deps.Wallet = wallet.NewProvider(wallet.ProviderConfig{
			Wallets: wallets,
			Chain:   deps.Chain,
			Session: deps.SessionStore,
			Bus:     deps.SignalBus,
			Logger:  logger,
		})
	}

	return deps, cleanup, nil
}

// buildWallets registers a bridge connector per configured extension and,
// when a seed is configured, a local signing wallet. The returned function
// wipes the local key.
func buildWallets(cfg config.WalletConfig, chain domain.ChainClient) (*wallet.Registry, func(), error) {
	reg := wallet.NewRegistry()
	destroy := func() {}

	if cfg.BridgeURL != "" {
		bridge := wallet.NewBridge(cfg.BridgeURL, cfg.BridgeToken, 0)
		for _, name := range cfg.BridgeWallets {
			reg.Register(bridge.Connector(name))
		}
	}

	if cfg.LocalEnabled() {
		seed, err := crypto.LoadSeed(crypto.KeyConfig{
			RawSeedHex:       cfg.SeedHex,
			EncryptedKeyPath: cfg.EncryptedKeyPath,
			KeyPassword:      cfg.KeyPassword,
		})
		if err != nil {
			return nil, nil, err
		}
		signer, err := crypto.NewSigner(seed)
		if err != nil {
			return nil, nil, err
		}
		api, err := wallet.NewLocalAPI(signer, chain, cfg.NetworkID())
		if err != nil {
			signer.Destroy()
			return nil, nil, err
		}
		reg.Register(wallet.NewLocalConnector(cfg.LocalName, api))
		destroy = signer.Destroy
	}
	return reg, destroy, nil
}

func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.TelegramBaseURL, cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Events, logger)
}
