package domain

import (
	"testing"
	"time"
)

func TestSelectLatest_MostRecentWins(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []MarketData{
		{Symbol: "ADA", Price: 0.45, UpdatedAt: base.Add(2 * time.Minute), Source: "coingecko"},
		{Symbol: "ada", Price: 0.41, UpdatedAt: base, Source: "defillama"},
		{Symbol: "MIN", Price: 0.02, UpdatedAt: base},
		{Symbol: "ADA", Price: 0.44, UpdatedAt: base.Add(time.Minute), Source: "binance"},
	}

	got := SelectLatest(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(got))
	}
	if got["ADA"].Price != 0.45 {
		t.Errorf("ADA price = %v, want 0.45 (newest row)", got["ADA"].Price)
	}
	if got["ADA"].Source != "coingecko" {
		t.Errorf("ADA source = %q, want coingecko", got["ADA"].Source)
	}
}

func TestSelectLatest_TieKeepsLaterRow(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	got := SelectLatest([]MarketData{
		{Symbol: "ADA", Price: 1, UpdatedAt: ts},
		{Symbol: "ADA", Price: 2, UpdatedAt: ts},
	})
	if got["ADA"].Price != 2 {
		t.Fatalf("tie: price = %v, want 2", got["ADA"].Price)
	}
}

func TestLatestSnapshots(t *testing.T) {
	base := time.Unix(1700000000, 0)
	rows := []PriceSnapshot{
		{Pair: "ADA/USDT", Venue: "minswap", Price: 0.45, Timestamp: base},
		{Pair: "ADA/USDT", Venue: "minswap", Price: 0.47, Timestamp: base.Add(time.Second)},
		{Pair: "ADA/USDT", Venue: "sundaeswap", Price: 0.46, Timestamp: base},
		{Pair: "ada/usdt", Venue: "Minswap", Price: 0.40, Timestamp: base.Add(-time.Second)},
	}

	got := LatestSnapshots(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d: %+v", len(got), got)
	}
	if got[0].Venue != "minswap" || got[0].Price != 0.47 {
		t.Errorf("minswap snapshot = %+v, want price 0.47", got[0])
	}
	if got[1].Venue != "sundaeswap" {
		t.Errorf("second snapshot venue = %q, want sundaeswap", got[1].Venue)
	}
}
