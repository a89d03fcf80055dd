package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

var errEmpty = errors.New("empty result")

// Attempt is one strategy that did not produce a result.
type Attempt struct {
	Strategy string
	Err      error
}

// AttemptLog lists failed strategies in the order they ran.
type AttemptLog []Attempt

// Err joins every failure, or returns nil for an empty log.
func (l AttemptLog) Err() error {
	errs := make([]error, 0, len(l))
	for _, a := range l {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	return errors.Join(errs...)
}

// AddressStrategy is one way of getting a usable address out of a wallet.
// It returns raw bytes in hex, as CIP-30 does.
type AddressStrategy struct {
	Name    string
	Resolve func(ctx context.Context, api domain.WalletAPI) (string, error)
}

func firstOf(list []string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(list) == 0 || list[0] == "" {
		return "", errEmpty
	}
	return list[0], nil
}

// DefaultAddressStrategies tries the change address, then the first used
// address, then the first reward address, then the address of the first UTXO.
func DefaultAddressStrategies() []AddressStrategy {
	return []AddressStrategy{
		{Name: "change_address", Resolve: func(ctx context.Context, api domain.WalletAPI) (string, error) {
			addr, err := api.GetChangeAddress(ctx)
			if err == nil && addr == "" {
				err = errEmpty
			}
			return addr, err
		}},
		{Name: "used_addresses", Resolve: func(ctx context.Context, api domain.WalletAPI) (string, error) {
			return firstOf(api.GetUsedAddresses(ctx))
		}},
		{Name: "reward_addresses", Resolve: func(ctx context.Context, api domain.WalletAPI) (string, error) {
			return firstOf(api.GetRewardAddresses(ctx))
		}},
		{Name: "utxo_address", Resolve: func(ctx context.Context, api domain.WalletAPI) (string, error) {
			raw, err := firstOf(api.GetUtxos(ctx))
			if err != nil {
				return "", err
			}
			u, err := DecodeUTXOHex(raw)
			if err != nil {
				return "", err
			}
			b, err := DecodeAddress(u.Address)
			if err != nil {
				return "", err
			}
			return hex.EncodeToString(b), nil
		}},
	}
}

// ResolveAddress runs strategies in order and returns the first address, as
// bech32. A strategy whose result does not convert counts as failed.
func ResolveAddress(ctx context.Context, api domain.WalletAPI, strategies []AddressStrategy) (string, AttemptLog, error) {
	var log AttemptLog
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", log, err
		}
		raw, err := s.Resolve(ctx, api)
		if err == nil {
			var addr string
			if addr, err = HexToBech32(raw); err == nil {
				return addr, log, nil
			}
		}
		log = append(log, Attempt{Strategy: s.Name, Err: err})
	}
	return "", log, fmt.Errorf("wallet: no address strategy succeeded: %w", log.Err())
}

// BalanceSource is what a balance strategy may query.
type BalanceSource struct {
	API     domain.WalletAPI
	Chain   domain.ChainClient
	Address string
}

// BalanceStrategy is one way of finding the wallet's lovelace.
type BalanceStrategy struct {
	Name    string
	Resolve func(ctx context.Context, src BalanceSource) (uint64, error)
}

// DefaultBalanceStrategies queries the chain client first, then decodes the
// wallet's CBOR balance, then sums its UTXOs.
func DefaultBalanceStrategies() []BalanceStrategy {
	return []BalanceStrategy{
		{Name: "chain_client", Resolve: func(ctx context.Context, src BalanceSource) (uint64, error) {
			if src.Chain == nil {
				return 0, errors.New("no chain client")
			}
			if src.Address == "" {
				return 0, errors.New("no address")
			}
			return src.Chain.AddressBalance(ctx, src.Address)
		}},
		{Name: "cbor_balance", Resolve: func(ctx context.Context, src BalanceSource) (uint64, error) {
			raw, err := src.API.GetBalance(ctx)
			if err != nil {
				return 0, err
			}
			if raw == "" {
				return 0, errEmpty
			}
			lovelace, _, err := DecodeValueHex(raw)
			return lovelace, err
		}},
		{Name: "utxo_sum", Resolve: func(ctx context.Context, src BalanceSource) (uint64, error) {
			raws, err := src.API.GetUtxos(ctx)
			if err != nil {
				return 0, err
			}
			utxos := make([]domain.UTXO, 0, len(raws))
			for _, raw := range raws {
				u, err := DecodeUTXOHex(raw)
				if err != nil {
					return 0, err
				}
				utxos = append(utxos, u)
			}
			return domain.SumLovelace(utxos), nil
		}},
	}
}

// ResolveBalance runs strategies in order and returns the first lovelace
// amount.
func ResolveBalance(ctx context.Context, src BalanceSource, strategies []BalanceStrategy) (uint64, AttemptLog, error) {
	var log AttemptLog
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return 0, log, err
		}
		lovelace, err := s.Resolve(ctx, src)
		if err == nil {
			return lovelace, log, nil
		}
		log = append(log, Attempt{Strategy: s.Name, Err: err})
	}
	return 0, log, fmt.Errorf("wallet: no balance strategy succeeded: %w", log.Err())
}
