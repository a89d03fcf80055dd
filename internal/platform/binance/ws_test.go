package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const adaFrame = `{"stream":"adausdt@miniTicker","data":{"e":"24hrMiniTicker","E":1740830400000,"s":"ADAUSDT","c":"0.4600","o":"0.4000","h":"0.47","l":"0.39","v":"1000","q":"460000"}}`

func TestDecode(t *testing.T) {
	c := New("wss://stream.binance.com:9443", map[string]string{"adausdt": "ada/usd"})

	tk, ok, err := c.Decode([]byte(adaFrame))
	if err != nil || !ok {
		t.Fatalf("Decode = (%v, %v)", ok, err)
	}
	if tk.Snapshot.Pair != "ADA/USD" || tk.Snapshot.Venue != Venue || tk.Snapshot.Price != 0.46 {
		t.Errorf("snapshot = %+v", tk.Snapshot)
	}
	if tk.Market.Symbol != "ADA" {
		t.Errorf("market symbol = %q", tk.Market.Symbol)
	}
	if d := tk.Market.Change24h - 15; d > 1e-9 || d < -1e-9 {
		t.Errorf("change = %v, want 15", tk.Market.Change24h)
	}
	if !tk.Snapshot.Timestamp.Equal(time.UnixMilli(1740830400000)) {
		t.Errorf("timestamp = %v", tk.Snapshot.Timestamp)
	}

	_, ok, err = c.Decode([]byte(`{"stream":"btcusdt@miniTicker","data":{"e":"24hrMiniTicker","s":"BTCUSDT","c":"1"}}`))
	if ok || err != nil {
		t.Errorf("unconfigured symbol = (%v, %v), want ignored", ok, err)
	}
	if _, _, err := c.Decode([]byte("nope")); err == nil {
		t.Error("garbage frame should fail to decode")
	}
}

func TestStreamURL(t *testing.T) {
	c := New("wss://stream.binance.com:9443/", map[string]string{"ADAUSDT": "ADA/USD"})
	want := "wss://stream.binance.com:9443/stream?streams=adausdt%40miniTicker"
	if got := c.StreamURL(); got != want {
		t.Errorf("StreamURL = %q, want %q", got, want)
	}
}

func TestRunConnection_DeliversAndReportsDisconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(adaFrame))
		_ = conn.Close()
	}))
	defer srv.Close()

	c := New("ws"+strings.TrimPrefix(srv.URL, "http"), map[string]string{"ADAUSDT": "ADA/USD"})

	var got []Ticker
	err := c.RunConnection(context.Background(), func(tk Ticker) { got = append(got, tk) })
	if err == nil {
		t.Fatal("RunConnection should report the dropped socket")
	}
	if len(got) != 1 || got[0].Snapshot.Price != 0.46 {
		t.Fatalf("delivered %+v, want one ADA ticker", got)
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want disconnect", err)
	}
}
