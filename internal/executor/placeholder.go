package executor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// CIP-20 transaction message metadata.
const (
	metadataLabelMsg = 674
	maxMsgLen        = 64
)

// Transaction body keys.
const (
	bodyInputs  = 0
	bodyOutputs = 1
	bodyFee     = 2
	bodyTTL     = 3
	bodyAuxHash = 7
)

func clip(s string) string {
	if len(s) > maxMsgLen {
		return s[:maxMsgLen]
	}
	return s
}

// PlaceholderTx builds a transaction with no inputs or outputs whose only
// content is a CIP-20 message describing the leg. It is signed like a real
// transaction, but nothing moves on chain.
func PlaceholderTx(l Leg, fee, ttlSlot uint64) ([]byte, error) {
	aux, err := cbor.Marshal(map[uint64]any{
		metadataLabelMsg: map[string]any{
			"msg": []string{
				clip(fmt.Sprintf("cardanodash %s %s", l.Side, l.Pair)),
				clip(fmt.Sprintf("%s @ %.6f x %.6f", l.Venue, l.Price, l.Amount)),
				clip("opportunity " + l.OpportunityID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("executor: encode metadata: %w", err)
	}
	auxHash := blake2b.Sum256(aux)

	body := map[uint64]any{
		bodyInputs:  []any{},
		bodyOutputs: []any{},
		bodyFee:     fee,
		bodyAuxHash: auxHash[:],
	}
	if ttlSlot > 0 {
		body[bodyTTL] = ttlSlot
	}

	tx, err := cbor.Marshal([]any{body, map[uint64]any{}, true, cbor.RawMessage(aux)})
	if err != nil {
		return nil, fmt.Errorf("executor: encode tx: %w", err)
	}
	return tx, nil
}
