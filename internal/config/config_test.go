package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateJoinsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Wallet.EncryptedKeyPath = "/tmp/key.json"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "unknown log_level", "redis: addr", "key_password"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) < 4 {
		t.Errorf("expected a joined error with every problem, got %v", err)
	}
}

func TestValidateWalletNeedsChain(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.SeedHex = strings.Repeat("ab", 32)
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "blockfrost") {
		t.Fatalf("local wallet without blockfrost project should fail, got %v", err)
	}
	cfg.Blockfrost.ProjectID = "mainnetXYZ"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadOverlaysFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.toml")
	body := `
mode = "scan"

[poll]
min_interval = "3s"

[arbitrage]
strategies = ["cross_venue"]
min_profit_pct = 1.25

[arbitrage.thresholds]
medium_profit_pct = 0.75
stale_after = "45s"

[binance.pairs]
ADAUSDT = "ada/usd"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CADASH_ARBITRAGE_MIN_PROFIT_PCT", "2.5")
	t.Setenv("CADASH_SERVER_CORS_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "scan" {
		t.Errorf("mode = %q, want scan", cfg.Mode)
	}
	if cfg.Poll.MinInterval.Duration != 3*time.Second {
		t.Errorf("min_interval = %v", cfg.Poll.MinInterval.Duration)
	}
	if cfg.Arbitrage.MinProfitPct != 2.5 {
		t.Errorf("env override lost: min_profit_pct = %v", cfg.Arbitrage.MinProfitPct)
	}
	if th := cfg.Arbitrage.Thresholds; th.MediumProfitPct != 0.75 || th.StaleAfter.Duration != 45*time.Second {
		t.Errorf("thresholds = %+v", th)
	}
	if cfg.Arbitrage.Thresholds.HighVolume != 10_000 {
		t.Errorf("unset threshold should keep its default, high_volume = %v", cfg.Arbitrage.Thresholds.HighVolume)
	}
	if got := cfg.Server.CORSOrigins; len(got) != 2 || got[1] != "http://b.test" {
		t.Errorf("cors origins = %v", got)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("defaults should survive the overlay, redis addr = %q", cfg.Redis.Addr)
	}
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*ThresholdsConfig)
		want string
	}{
		{"medium above high", func(th *ThresholdsConfig) { th.MediumProfitPct = 3 }, "medium_profit_pct"},
		{"volume tiers swapped", func(th *ThresholdsConfig) { th.MediumVolume = 20_000 }, "medium_volume"},
		{"suspect below high", func(th *ThresholdsConfig) { th.SuspectProfitPct = 1.5 }, "suspect_profit_pct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mut(&cfg.Arbitrage.Thresholds)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CADASH_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CADASH_LOG_LEVEL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug from .env", cfg.LogLevel)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Supabase.Password = "pw"
	cfg.Wallet.SeedHex = "00ff"
	cfg.Server.APIKey = ""
	cfg.Redis.URL = "rediss://default:pw@cache:6379/0"

	out := RedactedConfig(&cfg)
	if out.Supabase.Password != redacted || out.Wallet.SeedHex != redacted || out.Redis.URL != redacted {
		t.Errorf("secrets not redacted: %+v", out.Supabase)
	}
	if out.Server.APIKey != "" {
		t.Error("empty secret should stay empty")
	}
	if cfg.Supabase.Password != "pw" {
		t.Error("original was mutated")
	}
	out.Binance.Pairs["XRPUSDT"] = "XRP/USD"
	if _, ok := cfg.Binance.Pairs["XRPUSDT"]; ok {
		t.Error("redacted copy shares the pairs map")
	}
}

func TestValidateAcceptsRedisURL(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = ""
	cfg.Redis.URL = "redis://localhost:6379/0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
