package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

type recordingSender struct {
	name string
	err  error
	sent []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.sent = append(r.sent, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifier_FilterAndIsolation(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, []string{EventTrade}, discard())

	if err := n.Notify(context.Background(), EventOpportunity, "filtered", ""); err != nil {
		t.Fatalf("filtered event: %v", err)
	}
	if len(good.sent) != 0 {
		t.Fatal("filtered event was delivered")
	}

	err := n.Notify(context.Background(), EventTrade, "t1", "")
	if err == nil {
		t.Fatal("expected the failed sender to surface")
	}
	if len(good.sent) != 1 {
		t.Error("failure of one sender must not block the next")
	}

	_ = n.NotifyAll(context.Background(), "all", "")
	if len(good.sent) != 2 {
		t.Error("NotifyAll should bypass the filter")
	}
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscordSender(srv.URL).Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["content"] != "**Title**\nbody" {
		t.Errorf("content = %q", got["content"])
	}
}

func TestTelegramSender(t *testing.T) {
	var path string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := NewTelegramSender(srv.URL, "tok", "42").Send(context.Background(), "ADA_USD", "x"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("path = %s", path)
	}
	if got["chat_id"] != "42" || !strings.HasPrefix(got["text"], `*ADA\_USD*`) {
		t.Errorf("payload = %v", got)
	}
}

func TestTradeMessage(t *testing.T) {
	rec := domain.TradeRecord{Pair: "ADA/USD", BuyVenue: "minswap", SellVenue: "binance", Status: domain.TradePartial, BuyTxID: "abc", Error: "sell leg: sign: declined"}
	event, title, msg := TradeMessage(rec)
	if event != EventTradeFailed {
		t.Errorf("event = %s", event)
	}
	if !strings.Contains(title, "partial") || !strings.Contains(msg, "Buy tx abc") || !strings.Contains(msg, "declined") {
		t.Errorf("message = %q / %q", title, msg)
	}

	o := domain.NewOpportunity("o", "ADA/USD", "minswap", "binance", 0.45, 0.46, 1000, time.Now(), time.Minute)
	o.Confidence = domain.ConfidenceHigh
	title, _ = OpportunityMessage(o)
	if !strings.HasPrefix(title, "HIGH arbitrage ADA/USD (2.22%)") {
		t.Errorf("title = %q", title)
	}
}
