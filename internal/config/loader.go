package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, loads .env if present, applies CADASH_* environment
// variable overrides, and returns the final Config. A missing file at path is
// not an error when path is empty. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// A missing .env is the normal case in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CADASH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.BridgeURL, "CADASH_WALLET_BRIDGE_URL")
	setStr(&cfg.Wallet.BridgeToken, "CADASH_WALLET_BRIDGE_TOKEN")
	setStringSlice(&cfg.Wallet.BridgeWallets, "CADASH_WALLET_BRIDGE_WALLETS")
	setStr(&cfg.Wallet.LocalName, "CADASH_WALLET_LOCAL_NAME")
	setStr(&cfg.Wallet.SeedHex, "CADASH_WALLET_SEED_HEX")
	setStr(&cfg.Wallet.EncryptedKeyPath, "CADASH_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "CADASH_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.Network, "CADASH_WALLET_NETWORK")
	setBool(&cfg.Wallet.AutoConnect, "CADASH_WALLET_AUTO_CONNECT")

	// ── Market data ──
	setStr(&cfg.Blockfrost.BaseURL, "CADASH_BLOCKFROST_BASE_URL")
	setStr(&cfg.Blockfrost.ProjectID, "CADASH_BLOCKFROST_PROJECT_ID")
	setBool(&cfg.CoinGecko.Enabled, "CADASH_COINGECKO_ENABLED")
	setStr(&cfg.CoinGecko.BaseURL, "CADASH_COINGECKO_BASE_URL")
	setStr(&cfg.CoinGecko.APIKey, "CADASH_COINGECKO_API_KEY")
	setStringSlice(&cfg.CoinGecko.CoinIDs, "CADASH_COINGECKO_COIN_IDS")
	setDuration(&cfg.CoinGecko.Interval, "CADASH_COINGECKO_INTERVAL")
	setBool(&cfg.DefiLlama.Enabled, "CADASH_DEFILLAMA_ENABLED")
	setStr(&cfg.DefiLlama.APIURL, "CADASH_DEFILLAMA_API_URL")
	setStr(&cfg.DefiLlama.CoinsURL, "CADASH_DEFILLAMA_COINS_URL")
	setDuration(&cfg.DefiLlama.Interval, "CADASH_DEFILLAMA_INTERVAL")
	setBool(&cfg.Binance.Enabled, "CADASH_BINANCE_ENABLED")
	setStr(&cfg.Binance.WSURL, "CADASH_BINANCE_WS_URL")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "CADASH_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "CADASH_DATABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "CADASH_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "CADASH_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "CADASH_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "CADASH_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "CADASH_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "CADASH_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "CADASH_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "CADASH_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "CADASH_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "CADASH_REDIS_URL")
	setStr(&cfg.Redis.Addr, "CADASH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CADASH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CADASH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CADASH_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "CADASH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CADASH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CADASH_S3_REGION")
	setStr(&cfg.S3.Bucket, "CADASH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CADASH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CADASH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CADASH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CADASH_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Session.Path, "CADASH_SESSION_PATH")

	// ── Poll ──
	setDuration(&cfg.Poll.MinInterval, "CADASH_POLL_MIN_INTERVAL")
	setInt(&cfg.Poll.MaxRetries, "CADASH_POLL_MAX_RETRIES")
	setDuration(&cfg.Poll.ReconnectInterval, "CADASH_POLL_RECONNECT_INTERVAL")

	// ── Arbitrage ──
	setBool(&cfg.Arbitrage.Enabled, "CADASH_ARBITRAGE_ENABLED")
	setStringSlice(&cfg.Arbitrage.Strategies, "CADASH_ARBITRAGE_STRATEGIES")
	setFloat64(&cfg.Arbitrage.MinProfitPct, "CADASH_ARBITRAGE_MIN_PROFIT_PCT")
	setStr(&cfg.Arbitrage.MinConfidence, "CADASH_ARBITRAGE_MIN_CONFIDENCE")
	setDuration(&cfg.Arbitrage.ScanInterval, "CADASH_ARBITRAGE_SCAN_INTERVAL")
	setFloat64(&cfg.Arbitrage.MaxTradeAmount, "CADASH_ARBITRAGE_MAX_TRADE_AMOUNT")
	setFloat64(&cfg.Arbitrage.MaxSlippageBps, "CADASH_ARBITRAGE_MAX_SLIPPAGE_BPS")
	setFloat64(&cfg.Arbitrage.Thresholds.HighProfitPct, "CADASH_ARBITRAGE_HIGH_PROFIT_PCT")
	setDuration(&cfg.Arbitrage.Thresholds.StaleAfter, "CADASH_ARBITRAGE_STALE_AFTER")

	// ── Trade ──
	setFloat64(&cfg.Trade.DefaultAmount, "CADASH_TRADE_DEFAULT_AMOUNT")
	setInt(&cfg.Trade.RateLimit, "CADASH_TRADE_RATE_LIMIT")
	setBool(&cfg.Trade.Submit, "CADASH_TRADE_SUBMIT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "CADASH_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "CADASH_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "CADASH_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CADASH_SERVER_ENABLED")
	setStr(&cfg.Server.Host, "CADASH_SERVER_HOST")
	setInt(&cfg.Server.Port, "CADASH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CADASH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CADASH_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CADASH_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CADASH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CADASH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CADASH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CADASH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CADASH_MODE")
	setStr(&cfg.LogLevel, "CADASH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
