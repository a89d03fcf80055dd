package wallet

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeAddress_Prefix(t *testing.T) {
	kh := bytes.Repeat([]byte{0x22}, 28)
	tests := []struct {
		name   string
		header byte
		prefix string
	}{
		{"enterprise mainnet", 0x61, "addr1"},
		{"enterprise testnet", 0x60, "addr_test1"},
		{"reward mainnet", 0xe1, "stake1"},
		{"reward testnet", 0xe0, "stake_test1"},
		{"base mainnet", 0x01, "addr1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append([]byte{tt.header}, kh...)
			got, err := EncodeAddress(raw)
			if err != nil {
				t.Fatalf("EncodeAddress: %v", err)
			}
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("address %q lacks prefix %q", got, tt.prefix)
			}
			back, err := DecodeAddress(got)
			if err != nil {
				t.Fatalf("DecodeAddress: %v", err)
			}
			if !bytes.Equal(back, raw) {
				t.Errorf("round trip = %x, want %x", back, raw)
			}
		})
	}
}

func TestEncodeAddress_UnwrapsCBOR(t *testing.T) {
	raw := append([]byte{0x61}, bytes.Repeat([]byte{0x33}, 28)...)
	wrapped := append([]byte{0x58, byte(len(raw))}, raw...)

	a, err := EncodeAddress(raw)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeAddress(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("wrapped %q != raw %q", b, a)
	}
}

func TestAddressNetwork(t *testing.T) {
	n, err := AddressNetwork([]byte{0x61})
	if err != nil || n != 1 {
		t.Errorf("network = %d, %v", n, err)
	}
	if _, err := AddressNetwork(nil); err == nil {
		t.Error("empty address should fail")
	}
	if _, err := EncodeAddress([]byte{0x61, 0x01}); err == nil {
		t.Error("short address should fail")
	}
}
