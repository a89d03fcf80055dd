package domain

import (
	"sort"
	"strings"
	"time"
)

// MarketData is a ticker row for one symbol as reported by a single source.
// Rows are replaced wholesale on every refresh.
type MarketData struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Volume24h float64   `json:"volume_24h"`
	MarketCap float64   `json:"market_cap"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// PriceSnapshot is a single venue quote for a trading pair, the input to the
// arbitrage scanner.
type PriceSnapshot struct {
	Pair      string    `json:"pair"`
	Venue     string    `json:"venue"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Key identifies the (pair, venue) slot a snapshot occupies.
func (s PriceSnapshot) Key() string {
	return strings.ToUpper(s.Pair) + "@" + strings.ToLower(s.Venue)
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SelectLatest collapses rows to one per symbol. The row with the most recent
// UpdatedAt wins; on equal timestamps the later row in the slice wins.
func SelectLatest(rows []MarketData) map[string]MarketData {
	out := make(map[string]MarketData, len(rows))
	for _, r := range rows {
		sym := NormalizeSymbol(r.Symbol)
		cur, ok := out[sym]
		if !ok || !r.UpdatedAt.Before(cur.UpdatedAt) {
			out[sym] = r
		}
	}
	return out
}

// LatestSnapshots collapses snapshots to one per (pair, venue), keeping the
// most recent, and returns them sorted by pair then venue.
func LatestSnapshots(rows []PriceSnapshot) []PriceSnapshot {
	latest := make(map[string]PriceSnapshot, len(rows))
	for _, r := range rows {
		k := r.Key()
		cur, ok := latest[k]
		if !ok || !r.Timestamp.Before(cur.Timestamp) {
			latest[k] = r
		}
	}

	out := make([]PriceSnapshot, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair != out[j].Pair {
			return out[i].Pair < out[j].Pair
		}
		return out[i].Venue < out[j].Venue
	})
	return out
}

// GroupByPair buckets snapshots by upper-cased pair.
func GroupByPair(rows []PriceSnapshot) map[string][]PriceSnapshot {
	out := make(map[string][]PriceSnapshot)
	for _, r := range rows {
		p := strings.ToUpper(r.Pair)
		out[p] = append(out[p], r)
	}
	return out
}
