// Package wallet connects CIP-30 wallets, resolves their address and balance
// through ordered fallback strategies, and owns the single wallet state.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// multiAsset is policy id -> asset name -> quantity.
type multiAsset map[cbor.ByteString]map[cbor.ByteString]uint64

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid hex: %w", err)
	}
	return b, nil
}

// DecodeValue decodes a CBOR Value, either a bare coin or [coin, multiasset].
// Asset keys are policy id and asset name hex, concatenated.
func DecodeValue(raw []byte) (lovelace uint64, assets map[string]uint64, err error) {
	if err := cbor.Unmarshal(raw, &lovelace); err == nil {
		return lovelace, nil, nil
	}

	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &parts); err != nil {
		return 0, nil, fmt.Errorf("wallet: value is neither coin nor array: %w", err)
	}
	if len(parts) == 0 {
		return 0, nil, errors.New("wallet: empty value array")
	}
	if err := cbor.Unmarshal(parts[0], &lovelace); err != nil {
		return 0, nil, fmt.Errorf("wallet: value coin: %w", err)
	}
	if len(parts) > 1 {
		var ma multiAsset
		if err := cbor.Unmarshal(parts[1], &ma); err != nil {
			return 0, nil, fmt.Errorf("wallet: value multiasset: %w", err)
		}
		for policy, names := range ma {
			for name, qty := range names {
				if assets == nil {
					assets = make(map[string]uint64)
				}
				assets[hex.EncodeToString([]byte(policy))+hex.EncodeToString([]byte(name))] += qty
			}
		}
	}
	return lovelace, assets, nil
}

// DecodeValueHex is DecodeValue for the hex strings CIP-30 returns.
func DecodeValueHex(s string) (uint64, map[string]uint64, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return 0, nil, err
	}
	return DecodeValue(raw)
}

// EncodeValue is the inverse of DecodeValue. Asset keys must be a 56 char
// policy id followed by the asset name hex.
func EncodeValue(lovelace uint64, assets map[string]uint64) ([]byte, error) {
	if len(assets) == 0 {
		return cbor.Marshal(lovelace)
	}
	ma := make(multiAsset)
	for unit, qty := range assets {
		if len(unit) < 56 {
			return nil, fmt.Errorf("wallet: asset unit %q too short", unit)
		}
		policy, err := hex.DecodeString(unit[:56])
		if err != nil {
			return nil, fmt.Errorf("wallet: asset policy %q: %w", unit, err)
		}
		name, err := hex.DecodeString(unit[56:])
		if err != nil {
			return nil, fmt.Errorf("wallet: asset name %q: %w", unit, err)
		}
		p := cbor.ByteString(policy)
		if ma[p] == nil {
			ma[p] = make(map[cbor.ByteString]uint64)
		}
		ma[p][cbor.ByteString(name)] = qty
	}
	return cbor.Marshal([]any{lovelace, ma})
}

// DecodeUTXO decodes a TransactionUnspentOutput, [[txhash, index], output].
// The output may be the legacy array form or the post-Alonzo map form.
func DecodeUTXO(raw []byte) (domain.UTXO, error) {
	var pair []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &pair); err != nil {
		return domain.UTXO{}, fmt.Errorf("wallet: utxo: %w", err)
	}
	if len(pair) != 2 {
		return domain.UTXO{}, fmt.Errorf("wallet: utxo has %d elements, want 2", len(pair))
	}

	var input struct {
		_      struct{} `cbor:",toarray"`
		TxHash []byte
		Index  uint32
	}
	if err := cbor.Unmarshal(pair[0], &input); err != nil {
		return domain.UTXO{}, fmt.Errorf("wallet: utxo input: %w", err)
	}

	var addrRaw, valueRaw cbor.RawMessage
	var legacy []cbor.RawMessage
	if err := cbor.Unmarshal(pair[1], &legacy); err == nil {
		if len(legacy) < 2 {
			return domain.UTXO{}, errors.New("wallet: utxo output too short")
		}
		addrRaw, valueRaw = legacy[0], legacy[1]
	} else {
		var post map[uint64]cbor.RawMessage
		if err := cbor.Unmarshal(pair[1], &post); err != nil {
			return domain.UTXO{}, fmt.Errorf("wallet: utxo output: %w", err)
		}
		addrRaw, valueRaw = post[0], post[1]
		if addrRaw == nil || valueRaw == nil {
			return domain.UTXO{}, errors.New("wallet: utxo output missing address or value")
		}
	}

	var addr []byte
	if err := cbor.Unmarshal(addrRaw, &addr); err != nil {
		return domain.UTXO{}, fmt.Errorf("wallet: utxo address: %w", err)
	}
	bech, err := EncodeAddress(addr)
	if err != nil {
		return domain.UTXO{}, err
	}
	lovelace, assets, err := DecodeValue(valueRaw)
	if err != nil {
		return domain.UTXO{}, err
	}
	return domain.UTXO{
		TxHash:   hex.EncodeToString(input.TxHash),
		Index:    input.Index,
		Address:  bech,
		Lovelace: lovelace,
		Assets:   assets,
	}, nil
}

// DecodeUTXOHex is DecodeUTXO for a hex string.
func DecodeUTXOHex(s string) (domain.UTXO, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return domain.UTXO{}, err
	}
	return DecodeUTXO(raw)
}

// EncodeUTXO encodes u in the legacy array form.
func EncodeUTXO(u domain.UTXO) ([]byte, error) {
	txHash, err := hex.DecodeString(u.TxHash)
	if err != nil {
		return nil, fmt.Errorf("wallet: utxo tx hash: %w", err)
	}
	addr, err := DecodeAddress(u.Address)
	if err != nil {
		return nil, err
	}
	value, err := EncodeValue(u.Lovelace, u.Assets)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal([]any{
		[]any{txHash, u.Index},
		[]any{addr, cbor.RawMessage(value)},
	})
}
