package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Witness set key for vkey witnesses.
const witnessVKeys = 0

type vkeyWitness struct {
	_         struct{} `cbor:",toarray"`
	VKey      []byte
	Signature []byte
}

// TxBody returns the raw body of a transaction, its first element.
func TxBody(tx []byte) (cbor.RawMessage, error) {
	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(tx, &parts); err != nil {
		return nil, fmt.Errorf("wallet: transaction: %w", err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("wallet: transaction has %d elements", len(parts))
	}
	return parts[0], nil
}

// encodeWitnessSet encodes a witness set holding one vkey witness.
func encodeWitnessSet(vkey, sig []byte) ([]byte, error) {
	return cbor.Marshal(map[uint64]any{
		witnessVKeys: []vkeyWitness{{VKey: vkey, Signature: sig}},
	})
}

// AssembleTx merges the vkey witnesses returned by SignTx into the
// transaction and returns the result as hex, ready for SubmitTx.
func AssembleTx(txHex, witnessHex string) (string, error) {
	tx, err := decodeHex(txHex)
	if err != nil {
		return "", err
	}
	wit, err := decodeHex(witnessHex)
	if err != nil {
		return "", err
	}

	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(tx, &parts); err != nil {
		return "", fmt.Errorf("wallet: transaction: %w", err)
	}
	if len(parts) < 2 {
		return "", errors.New("wallet: transaction has no witness set")
	}

	var existing, added map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(parts[1], &existing); err != nil {
		return "", fmt.Errorf("wallet: witness set: %w", err)
	}
	if err := cbor.Unmarshal(wit, &added); err != nil {
		return "", fmt.Errorf("wallet: signed witness set: %w", err)
	}

	var vkeys []vkeyWitness
	for _, set := range []map[uint64]cbor.RawMessage{existing, added} {
		raw, ok := set[witnessVKeys]
		if !ok {
			continue
		}
		var ws []vkeyWitness
		if err := cbor.Unmarshal(raw, &ws); err != nil {
			return "", fmt.Errorf("wallet: vkey witnesses: %w", err)
		}
		vkeys = append(vkeys, ws...)
	}
	if existing == nil {
		existing = make(map[uint64]cbor.RawMessage)
	}
	merged, err := cbor.Marshal(vkeys)
	if err != nil {
		return "", err
	}
	existing[witnessVKeys] = merged

	set, err := cbor.Marshal(existing)
	if err != nil {
		return "", err
	}
	parts[1] = set
	out, err := cbor.Marshal(parts)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(out), nil
}

// WitnessCount returns the number of vkey witnesses attached to tx.
func WitnessCount(txHex string) (int, error) {
	tx, err := decodeHex(txHex)
	if err != nil {
		return 0, err
	}
	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(tx, &parts); err != nil || len(parts) < 2 {
		return 0, errors.New("wallet: not a transaction")
	}
	var set map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(parts[1], &set); err != nil {
		return 0, fmt.Errorf("wallet: witness set: %w", err)
	}
	var ws []vkeyWitness
	if raw, ok := set[witnessVKeys]; ok {
		if err := cbor.Unmarshal(raw, &ws); err != nil {
			return 0, fmt.Errorf("wallet: vkey witnesses: %w", err)
		}
	}
	return len(ws), nil
}
