// Package binance consumes the Binance combined miniTicker stream.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// Venue labels quotes produced by this client.
const Venue = "binance"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Ticker is one decoded miniTicker update.
type Ticker struct {
	Market   domain.MarketData
	Snapshot domain.PriceSnapshot
}

// TickerHandler is called for every update, from the read goroutine.
type TickerHandler func(Ticker)

// Client holds the stream URL and the symbol to pair mapping, e.g.
// ADAUSDT -> ADA/USD.
type Client struct {
	baseURL string
	pairs   map[string]string
	dialer  websocket.Dialer
}

// New creates a Client. pairs maps upper-case exchange symbols to dashboard
// pairs.
func New(baseURL string, pairs map[string]string) *Client {
	norm := make(map[string]string, len(pairs))
	for sym, pair := range pairs {
		norm[strings.ToUpper(sym)] = domain.NormalizeSymbol(pair)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		pairs:   norm,
		dialer:  websocket.Dialer{HandshakeTimeout: 15 * time.Second},
	}
}

// StreamURL builds the combined-stream URL for the configured symbols.
func (c *Client) StreamURL() string {
	streams := make([]string, 0, len(c.pairs))
	for sym := range c.pairs {
		streams = append(streams, strings.ToLower(sym)+"@miniTicker")
	}
	return c.baseURL + "/stream?streams=" + url.QueryEscape(strings.Join(streams, "/"))
}

// RunConnection dials once and delivers updates until the socket fails or ctx
// is cancelled. It always returns a non-nil error.
func (c *Client) RunConnection(ctx context.Context, onTicker TickerHandler) error {
	if len(c.pairs) == 0 {
		return fmt.Errorf("binance: no symbols configured")
	}
	conn, _, err := c.dialer.DialContext(ctx, c.StreamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance: dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// Binance pings the client; answering resets the deadline as well.
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("binance: read: %w: %w", domain.ErrWSDisconnect, err)
		}
		t, ok, err := c.Decode(raw)
		if err != nil || !ok {
			continue
		}
		onTicker(t)
	}
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type miniTicker struct {
	Event       string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	Open        string `json:"o"`
	QuoteVolume string `json:"q"`
}

// Decode parses one frame. ok is false for frames that are not miniTicker
// updates for a configured symbol.
func (c *Client) Decode(raw []byte) (Ticker, bool, error) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Ticker{}, false, fmt.Errorf("binance: decode envelope: %w", err)
	}
	data := env.Data
	if len(data) == 0 {
		data = raw
	}

	var m miniTicker
	if err := json.Unmarshal(data, &m); err != nil {
		return Ticker{}, false, fmt.Errorf("binance: decode ticker: %w", err)
	}
	if m.Event != "24hrMiniTicker" {
		return Ticker{}, false, nil
	}
	pair, ok := c.pairs[strings.ToUpper(m.Symbol)]
	if !ok {
		return Ticker{}, false, nil
	}

	closePx, err := strconv.ParseFloat(m.Close, 64)
	if err != nil {
		return Ticker{}, false, fmt.Errorf("binance: close %q: %w", m.Close, err)
	}
	openPx, _ := strconv.ParseFloat(m.Open, 64)
	quoteVol, _ := strconv.ParseFloat(m.QuoteVolume, 64)

	var change float64
	if openPx > 0 {
		change = (closePx - openPx) / openPx * 100
	}
	ts := time.UnixMilli(m.EventTime).UTC()
	base, _, _ := strings.Cut(pair, "/")

	return Ticker{
		Market: domain.MarketData{
			Symbol:    base,
			Price:     closePx,
			Change24h: change,
			Volume24h: quoteVol,
			UpdatedAt: ts,
			Source:    Venue,
		},
		Snapshot: domain.PriceSnapshot{
			Pair:      pair,
			Venue:     Venue,
			Price:     closePx,
			Volume:    quoteVol,
			Timestamp: ts,
		},
	}, true, nil
}
