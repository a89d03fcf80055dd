package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/alanyoungcy/cardanodash/internal/crypto"
	"github.com/alanyoungcy/cardanodash/internal/domain"
)

func newLocal(t *testing.T, chain domain.ChainClient) *LocalAPI {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	signer, err := crypto.NewSigner(seed)
	if err != nil {
		t.Fatal(err)
	}
	api, err := NewLocalAPI(signer, chain, domain.NetworkTestnet)
	if err != nil {
		t.Fatal(err)
	}
	return api
}

func TestLocalAPI_SignAndAssemble(t *testing.T) {
	chain := &fakeChain{}
	api := newLocal(t, chain)
	if !strings.HasPrefix(api.Address(), "addr_test1") {
		t.Fatalf("address = %s", api.Address())
	}

	body := map[uint64]any{0: []any{}, 1: []any{}, 2: uint64(170_000)}
	tx, err := cbor.Marshal([]any{body, map[uint64]any{}, true, nil})
	if err != nil {
		t.Fatal(err)
	}
	txHex := hex.EncodeToString(tx)

	witness, err := api.SignTx(context.Background(), txHex, false)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	signed, err := AssembleTx(txHex, witness)
	if err != nil {
		t.Fatalf("AssembleTx: %v", err)
	}
	if n, err := WitnessCount(signed); err != nil || n != 1 {
		t.Fatalf("witnesses = %d, %v", n, err)
	}

	var set map[uint64][]vkeyWitness
	raw, _ := hex.DecodeString(witness)
	if err := cbor.Unmarshal(raw, &set); err != nil {
		t.Fatal(err)
	}
	bodyRaw, _ := TxBody(tx)
	hash := crypto.TxHash(bodyRaw)
	w := set[0][0]
	if !ed25519.Verify(ed25519.PublicKey(w.VKey), hash[:], w.Signature) {
		t.Error("witness does not verify against the body hash")
	}

	if _, err := api.SubmitTx(context.Background(), signed); err != nil {
		t.Fatalf("SubmitTx: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Errorf("submitted = %d", len(chain.submitted))
	}
}

func TestLocalAPI_BalanceThroughStrategies(t *testing.T) {
	chain := &fakeChain{balanceErr: context.DeadlineExceeded}
	api := newLocal(t, chain)
	chain.utxos = []domain.UTXO{
		{TxHash: strings.Repeat("01", 32), Index: 0, Address: api.Address(), Lovelace: 5_000_000},
		{TxHash: strings.Repeat("02", 32), Index: 1, Address: api.Address(), Lovelace: 3_250_000},
	}

	lovelace, _, err := ResolveBalance(context.Background(), BalanceSource{API: api, Chain: chain, Address: api.Address()}, DefaultBalanceStrategies())
	if err != nil {
		t.Fatalf("ResolveBalance: %v", err)
	}
	if lovelace != 8_250_000 {
		t.Errorf("lovelace = %d", lovelace)
	}
}
