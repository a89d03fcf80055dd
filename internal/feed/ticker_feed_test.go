package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/binance"
)

type flakySource struct {
	calls atomic.Int32
}

func (s *flakySource) RunConnection(ctx context.Context, onTicker binance.TickerHandler) error {
	n := s.calls.Add(1)
	onTicker(binance.Ticker{Snapshot: domain.PriceSnapshot{Pair: "ADA/USD", Price: float64(n)}})
	return domain.ErrWSDisconnect
}

func TestTickerFeed_ReconnectsUntilCancelled(t *testing.T) {
	src := &flakySource{}
	var delivered atomic.Int32
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := NewTickerFeed(src, func(binance.Ticker) { delivered.Add(1) }, time.Millisecond, 4*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for src.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d connections before deadline", src.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if delivered.Load() < 3 || f.Updates() < 3 {
		t.Errorf("delivered %d updates, want >= 3", delivered.Load())
	}
	if f.Connected() {
		t.Error("feed should report disconnected after Run returns")
	}
}
