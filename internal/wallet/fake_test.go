package wallet

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// fakeAPI is a scriptable CIP-30 wallet.
type fakeAPI struct {
	network    int
	networkErr error
	change     string
	changeErr  error
	used       []string
	usedErr    error
	reward     []string
	rewardErr  error
	balance    string
	balanceErr error
	utxos      []string
	utxosErr   error
}

func (f *fakeAPI) GetNetworkID(context.Context) (int, error) { return f.network, f.networkErr }
func (f *fakeAPI) GetBalance(context.Context) (string, error) { return f.balance, f.balanceErr }
func (f *fakeAPI) GetUtxos(context.Context) ([]string, error) { return f.utxos, f.utxosErr }
func (f *fakeAPI) GetChangeAddress(context.Context) (string, error) {
	return f.change, f.changeErr
}
func (f *fakeAPI) GetUsedAddresses(context.Context) ([]string, error) { return f.used, f.usedErr }
func (f *fakeAPI) GetRewardAddresses(context.Context) ([]string, error) {
	return f.reward, f.rewardErr
}
func (f *fakeAPI) SignTx(context.Context, string, bool) (string, error) { return "", nil }
func (f *fakeAPI) SubmitTx(context.Context, string) (string, error)     { return "", nil }
func (f *fakeAPI) SignData(context.Context, string, string) (domain.DataSignature, error) {
	return domain.DataSignature{}, nil
}

type fakeConnector struct {
	name string
	api  domain.WalletAPI
	err  error
}

func (c *fakeConnector) Name() string { return c.name }
func (c *fakeConnector) Enable(context.Context) (domain.WalletAPI, error) {
	return c.api, c.err
}

type fakeChain struct {
	balance    uint64
	balanceErr error
	utxos      []domain.UTXO
	submitted  [][]byte
}

func (c *fakeChain) AddressUTXOs(context.Context, string) ([]domain.UTXO, error) {
	return c.utxos, nil
}
func (c *fakeChain) AddressBalance(context.Context, string) (uint64, error) {
	return c.balance, c.balanceErr
}
func (c *fakeChain) SubmitTx(_ context.Context, tx []byte) (string, error) {
	c.submitted = append(c.submitted, tx)
	return "txid", nil
}

type memSession struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemSession() *memSession { return &memSession{data: make(map[string]string)} }

func (m *memSession) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memSession) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memSession) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// testAddr returns a mainnet enterprise address as hex.
func testAddr(fill byte) string {
	kh := make([]byte, 28)
	for i := range kh {
		kh[i] = fill
	}
	return hex.EncodeToString(EnterpriseAddress(kh, domain.NetworkMainnet))
}
