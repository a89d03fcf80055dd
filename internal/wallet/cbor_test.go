package wallet

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

const testPolicy = "f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a"

func TestDecodeValue(t *testing.T) {
	coin, err := EncodeValue(5_000_000, nil)
	if err != nil {
		t.Fatal(err)
	}
	multi, err := EncodeValue(3_250_000, map[string]uint64{testPolicy + "746f6b656e": 42})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		raw      []byte
		lovelace uint64
		assets   int
	}{
		{"bare coin", coin, 5_000_000, 0},
		{"coin and assets", multi, 3_250_000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, assets, err := DecodeValueHex(hex.EncodeToString(tt.raw))
			if err != nil {
				t.Fatalf("DecodeValueHex: %v", err)
			}
			if l != tt.lovelace {
				t.Errorf("lovelace = %d, want %d", l, tt.lovelace)
			}
			if len(assets) != tt.assets {
				t.Errorf("assets = %v", assets)
			}
		})
	}

	if _, _, err := DecodeValueHex("zz"); err == nil {
		t.Error("bad hex should fail")
	}
	if _, _, err := DecodeValue([]byte{0x63, 'a', 'b', 'c'}); err == nil {
		t.Error("text string should fail")
	}
}

func TestUTXORoundTrip(t *testing.T) {
	addr, err := HexToBech32(testAddr(0x11))
	if err != nil {
		t.Fatal(err)
	}
	in := domain.UTXO{
		TxHash:   strings.Repeat("ab", 32),
		Index:    3,
		Address:  addr,
		Lovelace: 1_500_000,
		Assets:   map[string]uint64{testPolicy + "41": 7},
	}
	raw, err := EncodeUTXO(in)
	if err != nil {
		t.Fatalf("EncodeUTXO: %v", err)
	}
	out, err := DecodeUTXO(raw)
	if err != nil {
		t.Fatalf("DecodeUTXO: %v", err)
	}
	if out.TxHash != in.TxHash || out.Index != in.Index || out.Address != in.Address || out.Lovelace != in.Lovelace {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
	if out.Assets[testPolicy+"41"] != 7 {
		t.Errorf("assets = %v", out.Assets)
	}
}
