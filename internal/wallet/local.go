package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/alanyoungcy/cardanodash/internal/crypto"
	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// LocalAPI implements the CIP-30 surface with a locally held key and a chain
// client. It serves headless runs where no browser extension exists.
type LocalAPI struct {
	signer  *crypto.Signer
	chain   domain.ChainClient
	network int
	addr    []byte
	bech    string
}

// NewLocalAPI derives the enterprise address of signer on network.
func NewLocalAPI(signer *crypto.Signer, chain domain.ChainClient, network int) (*LocalAPI, error) {
	addr := EnterpriseAddress(signer.KeyHash(), network)
	bech, err := EncodeAddress(addr)
	if err != nil {
		return nil, err
	}
	return &LocalAPI{signer: signer, chain: chain, network: network, addr: addr, bech: bech}, nil
}

// Address returns the bech32 address.
func (a *LocalAPI) Address() string { return a.bech }

func (a *LocalAPI) GetNetworkID(context.Context) (int, error) { return a.network, nil }

func (a *LocalAPI) GetChangeAddress(context.Context) (string, error) {
	return hex.EncodeToString(a.addr), nil
}

func (a *LocalAPI) GetUsedAddresses(context.Context) ([]string, error) {
	return []string{hex.EncodeToString(a.addr)}, nil
}

func (a *LocalAPI) GetRewardAddresses(context.Context) ([]string, error) {
	return nil, nil
}

func (a *LocalAPI) GetBalance(ctx context.Context) (string, error) {
	if a.chain == nil {
		return "", errors.New("wallet: local: no chain client")
	}
	lovelace, err := a.chain.AddressBalance(ctx, a.bech)
	if err != nil {
		return "", fmt.Errorf("wallet: local: balance: %w", err)
	}
	v, err := EncodeValue(lovelace, nil)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(v), nil
}

func (a *LocalAPI) GetUtxos(ctx context.Context) ([]string, error) {
	if a.chain == nil {
		return nil, errors.New("wallet: local: no chain client")
	}
	utxos, err := a.chain.AddressUTXOs(ctx, a.bech)
	if err != nil {
		return nil, fmt.Errorf("wallet: local: utxos: %w", err)
	}
	out := make([]string, 0, len(utxos))
	for _, u := range utxos {
		raw, err := EncodeUTXO(u)
		if err != nil {
			return nil, err
		}
		out = append(out, hex.EncodeToString(raw))
	}
	return out, nil
}

// SignTx signs the body hash and returns a witness set with one vkey witness.
func (a *LocalAPI) SignTx(_ context.Context, txCBOR string, _ bool) (string, error) {
	tx, err := decodeHex(txCBOR)
	if err != nil {
		return "", err
	}
	body, err := TxBody(tx)
	if err != nil {
		return "", err
	}
	_, sig, err := a.signer.SignTxBody(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigningFailed, err)
	}
	set, err := encodeWitnessSet(a.signer.PublicKey(), sig)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(set), nil
}

func (a *LocalAPI) SubmitTx(ctx context.Context, txCBOR string) (string, error) {
	if a.chain == nil {
		return "", errors.New("wallet: local: no chain client")
	}
	tx, err := decodeHex(txCBOR)
	if err != nil {
		return "", err
	}
	return a.chain.SubmitTx(ctx, tx)
}

// SignData signs the payload bytes directly. Key is the raw public key.
func (a *LocalAPI) SignData(_ context.Context, _ string, payloadHex string) (domain.DataSignature, error) {
	payload, err := decodeHex(payloadHex)
	if err != nil {
		return domain.DataSignature{}, err
	}
	sig, err := a.signer.Sign(payload)
	if err != nil {
		return domain.DataSignature{}, fmt.Errorf("%w: %w", domain.ErrSigningFailed, err)
	}
	return domain.DataSignature{
		Signature: hex.EncodeToString(sig),
		Key:       hex.EncodeToString(a.signer.PublicKey()),
	}, nil
}

// LocalConnector exposes a LocalAPI under a wallet name.
type LocalConnector struct {
	name string
	api  *LocalAPI
}

// NewLocalConnector names api.
func NewLocalConnector(name string, api *LocalAPI) *LocalConnector {
	return &LocalConnector{name: name, api: api}
}

func (c *LocalConnector) Name() string { return c.name }

func (c *LocalConnector) Enable(context.Context) (domain.WalletAPI, error) { return c.api, nil }

var (
	_ domain.WalletAPI       = (*LocalAPI)(nil)
	_ domain.WalletConnector = (*LocalConnector)(nil)
)
