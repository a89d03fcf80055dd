package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

type chanBus struct {
	ch chan domain.BusMessage
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.ch <- domain.BusMessage{Channel: channel, Payload: payload}
	return nil
}

func (b *chanBus) Subscribe(context.Context, string) (<-chan domain.BusMessage, error) {
	return b.ch, nil
}

func TestMatchChannel(t *testing.T) {
	tests := []struct {
		sub, channel string
		want         bool
	}{
		{"ch:trade", "ch:trade", true},
		{"ch:trade", "ch:market", false},
		{"*", "ch:market", true},
		{"ch:*", "ch:position", true},
		{"ch:arb*", "ch:arbitrage", true},
		{"ch:arb*", "ch:market", false},
		{"status", "ch:market", false},
	}
	for _, tt := range tests {
		if got := MatchChannel(tt.sub, tt.channel); got != tt.want {
			t.Errorf("MatchChannel(%q, %q) = %v, want %v", tt.sub, tt.channel, got, tt.want)
		}
	}
}

func TestEncodeJSON(t *testing.T) {
	b, err := Encode(FormatJSON, "ch:trade", []byte(`{"event":"trade","data":{"id":"t1"}}`))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got struct {
		Channel string `json:"channel"`
		Payload struct {
			Event string `json:"event"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Channel != "ch:trade" || got.Payload.Event != "trade" {
		t.Errorf("envelope = %+v", got)
	}

	b, err = Encode(FormatJSON, "ch:x", []byte("not json"))
	if err != nil {
		t.Fatalf("Encode text: %v", err)
	}
	if !strings.Contains(string(b), `"payload":"not json"`) {
		t.Errorf("text payload = %s", b)
	}
}

func TestEncodeProto(t *testing.T) {
	b, err := Encode(FormatProto, "ch:market", []byte(`{"event":"market_update","data":{"price":0.45}}`))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		t.Fatalf("proto.Unmarshal: %v", err)
	}
	m := st.AsMap()
	if m["channel"] != "ch:market" {
		t.Errorf("channel = %v", m["channel"])
	}
	data := m["payload"].(map[string]any)["data"].(map[string]any)
	if data["price"] != 0.45 {
		t.Errorf("price = %v", data["price"])
	}
}

func dial(t *testing.T, srvURL, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return kind, data
}

func TestHubRoutesBySubscription(t *testing.T) {
	bus := &chanBus{ch: make(chan domain.BusMessage, 8)}
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "server"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	trades := dial(t, srv.URL, "?channels=ch:trade")
	protoAll := dial(t, srv.URL, "?format=proto")

	// Both get the status frame first.
	if _, data := read(t, trades); !strings.Contains(string(data), `"channel":"status"`) {
		t.Fatalf("first frame = %s", data)
	}
	if kind, _ := read(t, protoAll); kind != websocket.BinaryMessage {
		t.Fatalf("proto client got frame kind %d", kind)
	}

	waitClients(t, hub, 2)
	_ = bus.Publish(ctx, domain.ChannelMarket, []byte(`{"event":"market_update"}`))
	_ = bus.Publish(ctx, domain.ChannelTrade, []byte(`{"event":"trade"}`))

	// The trade-only client skips the market message.
	_, data := read(t, trades)
	if !strings.Contains(string(data), `"channel":"ch:trade"`) {
		t.Errorf("trade client got %s", data)
	}

	for _, want := range []string{domain.ChannelMarket, domain.ChannelTrade} {
		kind, data := read(t, protoAll)
		if kind != websocket.BinaryMessage {
			t.Fatalf("frame kind = %d, want binary", kind)
		}
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			t.Fatalf("proto.Unmarshal: %v", err)
		}
		if got := st.AsMap()["channel"]; got != want {
			t.Errorf("channel = %v, want %s", got, want)
		}
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
