// Package ws bridges the signal bus to dashboard WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// busPattern covers every dashboard channel.
const busPattern = "ch:*"

// Format is the frame encoding a client asked for.
type Format int

const (
	// FormatJSON sends text frames holding {"channel", "payload"}.
	FormatJSON Format = iota
	// FormatProto sends binary frames holding the same envelope as a
	// google.protobuf.Struct.
	FormatProto
)

// ParseFormat reads the ?format= query value.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "proto") || strings.EqualFold(s, "protobuf") {
		return FormatProto
	}
	return FormatJSON
}

// Config captures runtime metadata sent to WebSocket clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
	// AllowedOrigins restricts the upgrade. Empty allows every origin.
	AllowedOrigins []string
}

// client represents a single WebSocket connection.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	format Format
	send   chan []byte
	subs   map[string]bool
	mu     sync.RWMutex
}

// subscribeMsg is the JSON message a client sends to change its
// subscriptions. Channels may end in '*' to match a prefix.
type subscribeMsg struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// frame is one bus message, encoded lazily once per format.
type frame struct {
	channel string
	payload []byte

	once    [2]sync.Once
	encoded [2][]byte
}

func (f *frame) bytes(format Format) []byte {
	f.once[format].Do(func() {
		b, err := Encode(format, f.channel, f.payload)
		if err == nil {
			f.encoded[format] = b
		}
	})
	return f.encoded[format]
}

// Hub manages a set of connected WebSocket clients and broadcasts messages
// from the signal bus to the clients subscribed to each channel.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan *frame
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// NewHub creates a new WebSocket hub that bridges bus to connected clients.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan *frame, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws_hub")),
		mode:       mode,
		startedAt:  startedAt,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Run subscribes to the bus and runs the hub's event loop until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.bus.Subscribe(ctx, busPattern)
	if err != nil {
		return fmt.Errorf("ws: subscribe %s: %w", busPattern, err)
	}
	h.logger.InfoContext(ctx, "ws: subscribed to bus", slog.String("pattern", busPattern))

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client connected", slog.Int("total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected", slog.Int("total_clients", n))

		case msg, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: bus subscription closed")
				msgs = nil
				continue
			}
			h.dispatch(&frame{channel: msg.Channel, payload: msg.Payload})

		case f := <-h.broadcast:
			h.dispatch(f)
		}
	}
}

// Publish sends payload to local clients only, bypassing the bus.
func (h *Hub) Publish(channel string, payload []byte) {
	select {
	case h.broadcast <- &frame{channel: channel, payload: payload}:
	default:
		h.logger.Warn("ws: broadcast queue full, dropping", slog.String("channel", channel))
	}
}

func (h *Hub) dispatch(f *frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.isSubscribed(f.channel) {
			continue
		}
		data := f.bytes(c.format)
		if data == nil {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client's send buffer is full; drop the message.
			h.logger.Warn("ws: dropping message for slow client", slog.String("channel", f.channel))
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub. ?channels=a,b narrows the initial subscription,
// which otherwise covers everything.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		format: ParseFormat(r.URL.Query().Get("format")),
		send:   make(chan []byte, sendBufferSize),
		subs:   make(map[string]bool),
	}
	initial := []string{"*"}
	if v := r.URL.Query().Get("channels"); v != "" {
		initial = strings.Split(v, ",")
	}
	for _, ch := range initial {
		if ch = strings.TrimSpace(ch); ch != "" {
			c.subs[ch] = true
		}
	}

	h.register <- c
	c.sendInitialStatus()

	go c.writePump()
	go c.readPump()
}

// readPump reads subscription changes from the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
}

// sendInitialStatus pushes a status envelope so clients can mark the
// connection healthy before any market event arrives.
func (c *client) sendInitialStatus() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}
	payload, err := json.Marshal(map[string]any{
		"event": "status",
		"data": map[string]any{
			"mode":           c.hub.mode,
			"ws_connected":   true,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}
	msg, err := Encode(c.format, "status", payload)
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for sub := range c.subs {
		if MatchChannel(sub, channel) {
			return true
		}
	}
	return false
}

// writePump pumps messages from the hub to the WebSocket connection and
// sends periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	kind := websocket.TextMessage
	if c.format == FormatProto {
		kind = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(kind, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// MatchChannel reports whether subscription sub covers channel. "*" covers
// everything and a trailing '*' matches a prefix, so "ch:*" covers "ch:trade".
func MatchChannel(sub, channel string) bool {
	if sub == channel || sub == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(sub, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return false
}

// Encode wraps a bus payload in the client envelope. A payload that is not
// valid JSON is sent as a string.
func Encode(format Format, channel string, payload []byte) ([]byte, error) {
	if format == FormatJSON {
		raw := json.RawMessage(payload)
		if !json.Valid(payload) {
			quoted, err := json.Marshal(string(payload))
			if err != nil {
				return nil, err
			}
			raw = quoted
		}
		return json.Marshal(struct {
			Channel string          `json:"channel"`
			Payload json.RawMessage `json:"payload"`
		}{channel, raw})
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		body = string(payload)
	}
	st, err := structpb.NewStruct(map[string]any{
		"channel": channel,
		"payload": body,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: encode proto: %w", err)
	}
	b, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("ws: encode proto: %w", err)
	}
	return b, nil
}
