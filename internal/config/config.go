// Package config defines the top-level configuration for the Cardano trading
// dashboard backend and provides validation helpers.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CADASH_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Blockfrost BlockfrostConfig `toml:"blockfrost"`
	CoinGecko  CoinGeckoConfig  `toml:"coingecko"`
	DefiLlama  DefiLlamaConfig  `toml:"defillama"`
	Binance    BinanceConfig    `toml:"binance"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Session    SessionConfig    `toml:"session"`
	Poll       PollConfig       `toml:"poll"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Trade      TradeConfig      `toml:"trade"`
	Position   PositionConfig   `toml:"position"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig selects the wallet connectors. A bridge exposes browser
// CIP-30 wallets; a local wallet signs with a seed held on the server.
type WalletConfig struct {
	BridgeURL        string   `toml:"bridge_url"`
	BridgeToken      string   `toml:"bridge_token"`
	BridgeWallets    []string `toml:"bridge_wallets"`
	LocalName        string   `toml:"local_name"`
	SeedHex          string   `toml:"seed_hex"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	Network          string   `toml:"network"`
	// AutoConnect restores the last session at startup.
	AutoConnect bool `toml:"auto_connect"`
}

// LocalEnabled reports whether a server-side signing wallet is configured.
func (w WalletConfig) LocalEnabled() bool {
	return w.SeedHex != "" || w.EncryptedKeyPath != ""
}

// NetworkID maps the network name to the address header nibble.
func (w WalletConfig) NetworkID() int {
	if strings.EqualFold(w.Network, "mainnet") {
		return 1
	}
	return 0
}

// BlockfrostConfig holds the chain query API settings.
type BlockfrostConfig struct {
	BaseURL   string   `toml:"base_url"`
	ProjectID string   `toml:"project_id"`
	Timeout   duration `toml:"timeout"`
}

// CoinGeckoConfig holds the market data endpoint and the coins to track.
type CoinGeckoConfig struct {
	Enabled  bool     `toml:"enabled"`
	BaseURL  string   `toml:"base_url"`
	APIKey   string   `toml:"api_key"`
	CoinIDs  []string `toml:"coin_ids"`
	Currency string   `toml:"currency"`
	Interval duration `toml:"interval"`
	Timeout  duration `toml:"timeout"`
}

// DefiLlamaConfig holds the protocol and coin price endpoints. Quotes maps a
// coins-API key to the pair it prices.
type DefiLlamaConfig struct {
	Enabled        bool              `toml:"enabled"`
	APIURL         string            `toml:"api_url"`
	CoinsURL       string            `toml:"coins_url"`
	Chain          string            `toml:"chain"`
	VolumeFraction float64           `toml:"volume_fraction"`
	MarketCapMult  float64           `toml:"market_cap_mult"`
	Quotes         map[string]string `toml:"quotes"`
	Interval       duration          `toml:"interval"`
	Timeout        duration          `toml:"timeout"`
}

// BinanceConfig holds the live ticker stream settings. Pairs maps exchange
// symbols to dashboard pairs.
type BinanceConfig struct {
	Enabled       bool              `toml:"enabled"`
	WSURL         string            `toml:"ws_url"`
	Pairs         map[string]string `toml:"pairs"`
	ReconnectBase duration          `toml:"reconnect_base"`
	ReconnectMax  duration          `toml:"reconnect_max"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL, when set, takes precedence over the discrete fields below
	// (e.g. rediss://default:pw@host:6379/0, as Upstash and Railway hand out).
	URL        string   `toml:"url"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	MarketTTL  duration `toml:"market_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SessionConfig locates the sqlite file holding the wallet session.
type SessionConfig struct {
	Path string `toml:"path"`
}

// PollConfig holds the shared poller timing.
type PollConfig struct {
	MinInterval       duration `toml:"min_interval"`
	MaxRetries        int      `toml:"max_retries"`
	ReconnectInterval duration `toml:"reconnect_interval"`
	CacheTTL          duration `toml:"cache_ttl"`
}

// ArbitrageConfig holds scanner and pre-trade risk parameters.
type ArbitrageConfig struct {
	Enabled       bool               `toml:"enabled"`
	Strategies    []string           `toml:"strategies"`
	MinProfitPct  float64            `toml:"min_profit_pct"`
	MinConfidence string             `toml:"min_confidence"`
	MaxVolume     float64            `toml:"max_volume"`
	FeePct        map[string]float64 `toml:"fee_pct"`
	DefaultFeePct float64            `toml:"default_fee_pct"`
	TTL           duration           `toml:"ttl"`
	ScanInterval  duration           `toml:"scan_interval"`
	MinGap        duration           `toml:"min_gap"`
	LockTTL       duration           `toml:"lock_ttl"`

	MaxTradeAmount float64 `toml:"max_trade_amount"`
	MaxRiskScore   float64 `toml:"max_risk_score"`
	MaxSlippageBps float64 `toml:"max_slippage_bps"`
	MinBalanceADA  float64 `toml:"min_balance_ada"`

	Thresholds ThresholdsConfig `toml:"thresholds"`
}

// ThresholdsConfig sets the confidence tiers and the risk score inputs.
type ThresholdsConfig struct {
	HighProfitPct    float64  `toml:"high_profit_pct"`
	MediumProfitPct  float64  `toml:"medium_profit_pct"`
	HighVolume       float64  `toml:"high_volume"`
	MediumVolume     float64  `toml:"medium_volume"`
	StaleAfter       duration `toml:"stale_after"`
	SuspectProfitPct float64  `toml:"suspect_profit_pct"`
}

// TradeConfig holds simulated execution parameters.
type TradeConfig struct {
	DefaultAmount float64  `toml:"default_amount"`
	RateLimit     int      `toml:"rate_limit"`
	RateWindow    duration `toml:"rate_window"`
	Submit        bool     `toml:"submit"`
	FeeLovelace   uint64   `toml:"fee_lovelace"`
	DedupTTL      duration `toml:"dedup_ttl"`
}

// PositionConfig holds the market-making revaluation parameters.
type PositionConfig struct {
	DailyTurnover   float64  `toml:"daily_turnover"`
	RevalueInterval duration `toml:"revalue_interval"`
	StrategyTTL     duration `toml:"strategy_ttl"`
}

// ArchiveConfig holds cold-storage retention.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	TelegramBaseURL   string   `toml:"telegram_base_url"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Wallet: WalletConfig{
			BridgeWallets: []string{"nami", "eternl", "flint", "lace", "yoroi", "typhon"},
			LocalName:     "server",
			Network:       "mainnet",
			AutoConnect:   true,
		},
		Blockfrost: BlockfrostConfig{
			BaseURL: "https://cardano-mainnet.blockfrost.io/api/v0",
			Timeout: duration{10 * time.Second},
		},
		CoinGecko: CoinGeckoConfig{
			Enabled:  true,
			BaseURL:  "https://api.coingecko.com/api/v3",
			CoinIDs:  []string{"cardano", "minswap", "sundaeswap", "world-mobile-token", "indy", "djed"},
			Currency: "usd",
			Interval: duration{30 * time.Second},
			Timeout:  duration{10 * time.Second},
		},
		DefiLlama: DefiLlamaConfig{
			Enabled:        true,
			APIURL:         "https://api.llama.fi",
			CoinsURL:       "https://coins.llama.fi",
			Chain:          "Cardano",
			VolumeFraction: 0.05,
			MarketCapMult:  2,
			Quotes:         map[string]string{"coingecko:cardano": "ADA/USD"},
			Interval:       duration{time.Minute},
			Timeout:        duration{10 * time.Second},
		},
		Binance: BinanceConfig{
			Enabled:       true,
			WSURL:         "wss://stream.binance.com:9443",
			Pairs:         map[string]string{"ADAUSDT": "ADA/USD"},
			ReconnectBase: duration{time.Second},
			ReconnectMax:  duration{time.Minute},
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			MarketTTL:  duration{10 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "cardanodash-archive",
			ForcePathStyle: true,
		},
		Session: SessionConfig{Path: "cardanodash.db"},
		Poll: PollConfig{
			MinInterval:       duration{10 * time.Second},
			MaxRetries:        5,
			ReconnectInterval: duration{2 * time.Minute},
			CacheTTL:          duration{5 * time.Minute},
		},
		Arbitrage: ArbitrageConfig{
			Enabled:        true,
			Strategies:     []string{"cross_venue"},
			MinProfitPct:   0.5,
			MinConfidence:  "low",
			FeePct:         map[string]float64{"binance": 0.1},
			DefaultFeePct:  0.3,
			TTL:            duration{30 * time.Second},
			ScanInterval:   duration{15 * time.Second},
			MinGap:         duration{2 * time.Second},
			LockTTL:        duration{30 * time.Second},
			MaxTradeAmount: 5000,
			MaxRiskScore:   0.8,
			MaxSlippageBps: 50,
			MinBalanceADA:  5,
			Thresholds: ThresholdsConfig{
				HighProfitPct:    2.0,
				MediumProfitPct:  1.0,
				HighVolume:       10_000,
				MediumVolume:     1_000,
				StaleAfter:       duration{60 * time.Second},
				SuspectProfitPct: 10,
			},
		},
		Trade: TradeConfig{
			DefaultAmount: 100,
			RateLimit:     10,
			RateWindow:    duration{time.Minute},
			FeeLovelace:   170_000,
			DedupTTL:      duration{10 * time.Minute},
		},
		Position: PositionConfig{
			DailyTurnover:   0.1,
			RevalueInterval: duration{time.Minute},
			StrategyTTL:     duration{30 * time.Second},
		},
		Archive: ArchiveConfig{
			Enabled:       true,
			RetentionDays: 30,
			Cron:          "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			TelegramBaseURL: "https://api.telegram.org",
			Events:          []string{"arbitrage.opportunity", "trade.executed", "trade.failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"scan":    true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validConfidence = map[string]bool{
	"":       true,
	"low":    true,
	"medium": true,
	"high":   true,
}

// Validate checks Config for obviously invalid or missing values and returns
// every problem found joined into one error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		add("unknown mode %q (valid: server, scan, archive, full)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		add("wallet: key_password is required when encrypted_key_path is set")
	}
	if n := strings.ToLower(c.Wallet.Network); n != "mainnet" && n != "testnet" && n != "preprod" && n != "preview" {
		add("wallet: unknown network %q", c.Wallet.Network)
	}
	if c.Wallet.LocalEnabled() && c.Blockfrost.ProjectID == "" {
		add("blockfrost: project_id is required for a local wallet")
	}

	if mode != "archive" {
		if c.CoinGecko.Enabled && len(c.CoinGecko.CoinIDs) == 0 {
			add("coingecko: coin_ids must not be empty when enabled")
		}
		if c.Binance.Enabled && len(c.Binance.Pairs) == 0 {
			add("binance: pairs must not be empty when enabled")
		}
		if c.Poll.MaxRetries < 0 {
			add("poll: max_retries must be >= 0")
		}
	}

	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			add("supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			add("supabase: port must be 1-65535, got %d", c.Supabase.Port)
		}
		if c.Supabase.Database == "" {
			add("supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		add("supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		add("supabase: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" && c.Redis.URL == "" {
		add("redis: addr or url must be set")
	}
	if c.Redis.PoolSize < 1 {
		add("redis: pool_size must be >= 1")
	}

	if c.Archive.Enabled || mode == "archive" {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty")
		}
		if c.Archive.RetentionDays < 1 {
			add("archive: retention_days must be >= 1")
		}
	}

	if c.Session.Path == "" {
		add("session: path must not be empty")
	}

	if c.Arbitrage.Enabled {
		if len(c.Arbitrage.Strategies) == 0 {
			add("arbitrage: strategies must not be empty when enabled")
		}
		if c.Arbitrage.MinProfitPct < 0 {
			add("arbitrage: min_profit_pct must be >= 0")
		}
		if !validConfidence[strings.ToLower(c.Arbitrage.MinConfidence)] {
			add("arbitrage: unknown min_confidence %q", c.Arbitrage.MinConfidence)
		}
		th := c.Arbitrage.Thresholds
		if th.MediumProfitPct > th.HighProfitPct {
			add("arbitrage: thresholds medium_profit_pct must be <= high_profit_pct")
		}
		if th.MediumVolume > th.HighVolume {
			add("arbitrage: thresholds medium_volume must be <= high_volume")
		}
		if th.SuspectProfitPct > 0 && th.SuspectProfitPct <= th.HighProfitPct {
			add("arbitrage: thresholds suspect_profit_pct must exceed high_profit_pct")
		}
	}
	if c.Trade.DefaultAmount < 0 {
		add("trade: default_amount must be >= 0")
	}
	if c.Position.DailyTurnover < 0 {
		add("position: daily_turnover must be >= 0")
	}

	if c.Server.Enabled && (mode == "server" || mode == "full") {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}
