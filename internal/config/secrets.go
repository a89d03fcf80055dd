package config

import "maps"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by
// "***", safe to log. Slices and maps are copied so the result cannot mutate
// cfg.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Wallet.BridgeToken)
	redact(&out.Wallet.SeedHex)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Blockfrost.ProjectID)
	redact(&out.CoinGecko.APIKey)
	redact(&out.Supabase.DSN)
	redact(&out.Supabase.Password)
	redact(&out.Redis.URL)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	out.Wallet.BridgeWallets = cloneSlice(cfg.Wallet.BridgeWallets)
	out.CoinGecko.CoinIDs = cloneSlice(cfg.CoinGecko.CoinIDs)
	out.Arbitrage.Strategies = cloneSlice(cfg.Arbitrage.Strategies)
	out.Server.CORSOrigins = cloneSlice(cfg.Server.CORSOrigins)
	out.Notify.Events = cloneSlice(cfg.Notify.Events)

	out.DefiLlama.Quotes = maps.Clone(cfg.DefiLlama.Quotes)
	out.Binance.Pairs = maps.Clone(cfg.Binance.Pairs)
	out.Arbitrage.FeePct = maps.Clone(cfg.Arbitrage.FeePct)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
