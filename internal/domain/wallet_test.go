package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLovelaceToADA_SumOfUTXOs(t *testing.T) {
	utxos := []UTXO{
		{TxHash: "aa", Index: 0, Lovelace: 5_000_000},
		{TxHash: "bb", Index: 1, Lovelace: 3_250_000},
	}

	total := SumLovelace(utxos)
	if total != 8_250_000 {
		t.Fatalf("SumLovelace = %d, want 8250000", total)
	}

	ada := LovelaceToADA(total)
	if !ada.Equal(decimal.RequireFromString("8.25")) {
		t.Fatalf("LovelaceToADA = %s, want 8.25", ada)
	}
	if ada.String() != "8.25" {
		t.Errorf("display = %q, want 8.25", ada.String())
	}
}

func TestADAToLovelace(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"8.25", 8_250_000},
		{"0.0000019", 1},
		{"-1", 0},
		{"0", 0},
	}
	for _, tt := range tests {
		got := ADAToLovelace(decimal.RequireFromString(tt.in))
		if got != tt.want {
			t.Errorf("ADAToLovelace(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
