package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LovelacePerADA is the number of lovelace in one ADA.
const LovelacePerADA = 1_000_000

// Network identifiers as encoded in the low nibble of a Shelley address header.
const (
	NetworkTestnet = 0
	NetworkMainnet = 1
)

// UTXO is an unspent transaction output owned by the wallet.
type UTXO struct {
	TxHash   string            `json:"tx_hash"`
	Index    uint32            `json:"index"`
	Address  string            `json:"address"`
	Lovelace uint64            `json:"lovelace"`
	Assets   map[string]uint64 `json:"assets,omitempty"`
}

// SumLovelace totals the lovelace held across utxos.
func SumLovelace(utxos []UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Lovelace
	}
	return total
}

// LovelaceToADA converts a lovelace amount to whole-coin units without
// floating point rounding.
func LovelaceToADA(lovelace uint64) decimal.Decimal {
	return decimal.NewFromUint64(lovelace).Div(decimal.NewFromInt(LovelacePerADA))
}

// ADAToLovelace converts an ADA amount to lovelace, truncating sub-lovelace
// precision.
func ADAToLovelace(ada decimal.Decimal) uint64 {
	l := ada.Mul(decimal.NewFromInt(LovelacePerADA)).Truncate(0)
	if l.IsNegative() {
		return 0
	}
	return l.BigInt().Uint64()
}

// DataSignature is the CIP-30 signData result.
type DataSignature struct {
	Signature string `json:"signature"`
	Key       string `json:"key"`
}

// WalletAPI is the CIP-30 surface exposed by an enabled wallet. Addresses,
// balances and UTXOs are returned as hex-encoded CBOR exactly as the wallet
// provides them.
type WalletAPI interface {
	GetNetworkID(ctx context.Context) (int, error)
	GetBalance(ctx context.Context) (string, error)
	GetUtxos(ctx context.Context) ([]string, error)
	GetChangeAddress(ctx context.Context) (string, error)
	GetUsedAddresses(ctx context.Context) ([]string, error)
	GetRewardAddresses(ctx context.Context) ([]string, error)
	SignTx(ctx context.Context, txCBOR string, partial bool) (string, error)
	SubmitTx(ctx context.Context, txCBOR string) (string, error)
	SignData(ctx context.Context, address, payloadHex string) (DataSignature, error)
}

// WalletConnector is an installed wallet that can be enabled by name.
type WalletConnector interface {
	Name() string
	Enable(ctx context.Context) (WalletAPI, error)
}

// ChainClient queries the ledger independently of the wallet.
type ChainClient interface {
	AddressUTXOs(ctx context.Context, address string) ([]UTXO, error)
	AddressBalance(ctx context.Context, address string) (uint64, error)
	SubmitTx(ctx context.Context, txCBOR []byte) (string, error)
}

// WalletState is the full state owned by the wallet provider. Every mutation
// replaces the whole value.
type WalletState struct {
	Connected  bool            `json:"connected"`
	Connecting bool            `json:"connecting"`
	WalletName string          `json:"wallet_name,omitempty"`
	API        WalletAPI       `json:"-"`
	Chain      ChainClient     `json:"-"`
	Address    string          `json:"address,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
	NetworkID  int             `json:"network_id"`
	Error      string          `json:"error,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NetworkName returns "mainnet" or "testnet" for the state's network id.
func (s WalletState) NetworkName() string {
	if s.NetworkID == NetworkMainnet {
		return "mainnet"
	}
	return "testnet"
}
