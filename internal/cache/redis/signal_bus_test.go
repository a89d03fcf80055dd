package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestHasPattern(t *testing.T) {
	tests := []struct {
		channel string
		want    bool
	}{
		{"ch:market", false},
		{"ch:*", true},
		{"ch:?rade", true},
		{"ch:[mt]*", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := hasPattern(tt.channel); got != tt.want {
			t.Errorf("hasPattern(%q) = %v, want %v", tt.channel, got, tt.want)
		}
	}
}

func TestKeySchema(t *testing.T) {
	if got := marketKey("ADA"); got != "market:ADA" {
		t.Errorf("marketKey = %q", got)
	}
	if got := snapKey("ADA/USDT", "binance"); got != "snap:ADA/USDT:binance" {
		t.Errorf("snapKey = %q", got)
	}
	if got := lockKey("arb_scan"); got != "lock:arb_scan" {
		t.Errorf("lockKey = %q", got)
	}
	if got := rateLimitKey("trade:addr1"); got != "ratelimit:trade:addr1" {
		t.Errorf("rateLimitKey = %q", got)
	}
}

func TestToBusMessageKeepsConcreteChannel(t *testing.T) {
	msg := &redis.Message{Channel: "ch:trade", Pattern: "ch:*", Payload: `{"event":"trade.executed"}`}
	got := toBusMessage(msg)
	if got.Channel != "ch:trade" {
		t.Errorf("channel = %q, want ch:trade", got.Channel)
	}
	if string(got.Payload) != msg.Payload {
		t.Errorf("payload = %s", got.Payload)
	}
}
