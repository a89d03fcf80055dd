package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("ids"); got != "cardano" {
			t.Errorf("ids = %q, want cardano", got)
		}
		if got := r.Header.Get("x-cg-demo-api-key"); got != "k" {
			t.Errorf("api key header = %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"cardano","symbol":"ada","current_price":0.452,
			"price_change_percentage_24h":-1.2,"total_volume":300000000,
			"market_cap":16000000000,"last_updated":"2025-03-01T12:00:00.000Z"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", []string{"cardano"}, "USD", time.Second)
	rows, err := c.Markets(context.Background())
	if err != nil {
		t.Fatalf("Markets: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	md := rows[0]
	if md.Symbol != "ADA" || md.Price != 0.452 || md.Source != Source {
		t.Fatalf("unexpected row %+v", md)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if !md.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", md.UpdatedAt, want)
	}

	q := c.Quote(md)
	if q.Pair != "ADA/USD" || q.Venue != Source || q.Price != 0.452 {
		t.Errorf("Quote = %+v", q)
	}
}
