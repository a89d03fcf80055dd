package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Header types 14 and 15 are reward (stake) addresses.
const (
	headerRewardKey    = 0x0e
	headerRewardScript = 0x0f
	headerEnterprise   = 0x06
)

// AddressNetwork returns the network id in the low nibble of the header.
func AddressNetwork(addr []byte) (int, error) {
	if len(addr) == 0 {
		return 0, errors.New("wallet: empty address")
	}
	return int(addr[0] & 0x0f), nil
}

// addressPrefix picks the bech32 human readable part from the header.
func addressPrefix(header byte) string {
	stake := header>>4 == headerRewardKey || header>>4 == headerRewardScript
	mainnet := header&0x0f == 1
	switch {
	case stake && mainnet:
		return "stake"
	case stake:
		return "stake_test"
	case mainnet:
		return "addr"
	default:
		return "addr_test"
	}
}

// unwrapAddress strips a CBOR byte string header if the wallet returned one.
// A raw Shelley header never starts with 0x58 because network 8 is unused.
func unwrapAddress(b []byte) []byte {
	if len(b) > 2 && b[0] == 0x58 && int(b[1]) == len(b)-2 {
		return b[2:]
	}
	return b
}

// EncodeAddress renders raw address bytes as bech32.
func EncodeAddress(addr []byte) (string, error) {
	addr = unwrapAddress(addr)
	if len(addr) < 29 {
		return "", fmt.Errorf("wallet: address has %d bytes", len(addr))
	}
	conv, err := bech32.ConvertBits(addr, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("wallet: convert address bits: %w", err)
	}
	s, err := bech32.Encode(addressPrefix(addr[0]), conv)
	if err != nil {
		return "", fmt.Errorf("wallet: bech32 encode: %w", err)
	}
	return s, nil
}

// HexToBech32 converts the hex address form returned by CIP-30 calls.
func HexToBech32(s string) (string, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return "", err
	}
	return EncodeAddress(raw)
}

// DecodeAddress parses a bech32 address back to its raw bytes.
func DecodeAddress(s string) ([]byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("wallet: bech32 decode: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("wallet: convert address bits: %w", err)
	}
	if len(raw) == 0 || addressPrefix(raw[0]) != hrp {
		return nil, fmt.Errorf("wallet: prefix %q does not match address header", hrp)
	}
	return raw, nil
}

// EnterpriseAddress builds the header and key hash of a payment-only address.
func EnterpriseAddress(keyHash []byte, network int) []byte {
	out := make([]byte, 0, 1+len(keyHash))
	out = append(out, headerEnterprise<<4|byte(network&0x0f))
	return append(out, keyHash...)
}
