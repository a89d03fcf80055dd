package executor

import (
	"context"
	"crypto/ed25519"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/crypto"
	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/wallet"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// flakyAPI signs with a real local key and fails the sign call selected by failSign.
type flakyAPI struct {
	domain.WalletAPI
	signs     int
	failSign  int // 1-based sign call that fails, 0 never
	submitted []string
}

func (f *flakyAPI) SignTx(ctx context.Context, tx string, partial bool) (string, error) {
	f.signs++
	if f.signs == f.failSign {
		return "", errors.New("user declined")
	}
	return f.WalletAPI.SignTx(ctx, tx, partial)
}

func (f *flakyAPI) SubmitTx(_ context.Context, tx string) (string, error) {
	f.submitted = append(f.submitted, tx)
	return "tx-" + string(rune('a'+len(f.submitted)-1)), nil
}

func newAPI(t *testing.T, failSign int) *flakyAPI {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[1] = 9
	signer, err := crypto.NewSigner(seed)
	if err != nil {
		t.Fatal(err)
	}
	local, err := wallet.NewLocalAPI(signer, nil, domain.NetworkTestnet)
	if err != nil {
		t.Fatal(err)
	}
	return &flakyAPI{WalletAPI: local, failSign: failSign}
}

func testOpp() domain.ArbitrageOpportunity {
	return domain.NewOpportunity("opp-1", "ADA/USD", "minswap", "binance", 0.45, 0.46, 1000, t0, 30*time.Second)
}

func newExec(submit bool) *Executor {
	e := New(Config{Submit: submit}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return e.WithClock(func() time.Time { return t0.Add(time.Second) })
}

func TestExecute_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		failSign int
		status   domain.TradeStatus
		partial  bool
		buyTx    bool
		sellTx   bool
	}{
		{"both legs", 0, domain.TradeSuccess, false, true, true},
		{"buy fails", 1, domain.TradeFailed, false, false, false},
		{"sell fails", 2, domain.TradePartial, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newExec(false).Execute(context.Background(), newAPI(t, tt.failSign), testOpp(), 500)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Status != tt.status || res.Partial != tt.partial {
				t.Errorf("result = %+v", res)
			}
			if (res.BuyTxID != "") != tt.buyTx || (res.SellTxID != "") != tt.sellTx {
				t.Errorf("tx ids = %q / %q", res.BuyTxID, res.SellTxID)
			}
			if res.Success != (tt.status == domain.TradeSuccess) {
				t.Errorf("success = %v", res.Success)
			}
			if tt.status != domain.TradeSuccess && res.Error == "" {
				t.Error("failed result should carry the error")
			}
		})
	}
}

func TestExecute_SubmitsSignedTx(t *testing.T) {
	api := newAPI(t, 0)
	res, err := newExec(true).Execute(context.Background(), api, testOpp(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.BuyTxID != "tx-a" || res.SellTxID != "tx-b" {
		t.Errorf("tx ids = %q / %q", res.BuyTxID, res.SellTxID)
	}
	for _, tx := range api.submitted {
		if n, err := wallet.WitnessCount(tx); err != nil || n != 1 {
			t.Errorf("submitted tx witnesses = %d, %v", n, err)
		}
	}
}

func TestExecute_Rejections(t *testing.T) {
	e := newExec(false)
	api := newAPI(t, 0)

	if _, err := e.Execute(context.Background(), nil, testOpp(), 1); !errors.Is(err, domain.ErrWalletNotConnected) {
		t.Errorf("nil api err = %v", err)
	}
	if _, err := e.Execute(context.Background(), api, testOpp(), 5000); !errors.Is(err, domain.ErrInvalidOpportunity) {
		t.Errorf("oversized amount err = %v", err)
	}

	expired := testOpp()
	expired.ExpiresAt = t0
	if _, err := e.Execute(context.Background(), api, expired, 1); !errors.Is(err, domain.ErrOpportunityExpired) {
		t.Errorf("expired err = %v", err)
	}

	if _, err := e.Execute(context.Background(), api, testOpp(), 1); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if _, err := e.Execute(context.Background(), api, testOpp(), 1); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("second execute err = %v, want duplicate", err)
	}
}

func TestDedup_Window(t *testing.T) {
	now := t0
	d := NewDedup(time.Minute, func() time.Time { return now })

	if d.IsDuplicate("a") {
		t.Fatal("first sighting is not a duplicate")
	}
	if !d.IsDuplicate("a") {
		t.Fatal("second sighting within the window is a duplicate")
	}
	now = now.Add(time.Minute)
	d.Cleanup()
	if d.IsDuplicate("a") {
		t.Fatal("expired entry should be accepted again")
	}
	d.Forget("a")
	if d.IsDuplicate("a") {
		t.Fatal("forgotten entry should be accepted again")
	}
}

func TestExecute_RetryAfterFailedLeg(t *testing.T) {
	tests := []struct {
		name      string
		failSign  int
		wantRetry bool
	}{
		{"declined buy can be retried", 1, true},
		{"partial fill is not retried", 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExec(false)
			res, err := e.Execute(context.Background(), newAPI(t, tt.failSign), testOpp(), 10)
			if err != nil {
				t.Fatalf("first execute: %v", err)
			}
			if res.Success {
				t.Fatalf("first execute should fail, got %+v", res)
			}

			res, err = e.Execute(context.Background(), newAPI(t, 0), testOpp(), 10)
			if !tt.wantRetry {
				if !errors.Is(err, domain.ErrDuplicate) {
					t.Fatalf("retry err = %v, want duplicate", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			if res.Status != domain.TradeSuccess {
				t.Errorf("retry status = %s", res.Status)
			}
		})
	}
}

func TestDedup_SweepsExpiredEntries(t *testing.T) {
	now := t0
	d := NewDedup(time.Minute, func() time.Time { return now })

	for _, id := range []string{"a", "b", "c"} {
		d.IsDuplicate(id)
	}
	if got := d.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	now = now.Add(2 * time.Minute)
	if d.IsDuplicate("d") {
		t.Fatal("new id is not a duplicate")
	}
	if got := d.Len(); got != 1 {
		t.Errorf("Len after sweep = %d, want 1", got)
	}
}

func TestPlaceholderTx_HasBody(t *testing.T) {
	tx, err := PlaceholderTx(Legs(testOpp(), 1)[0], 170_000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wallet.TxBody(tx); err != nil {
		t.Fatalf("TxBody: %v", err)
	}
}
