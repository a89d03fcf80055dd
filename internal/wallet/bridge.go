package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/rest"
)

// CIP-30 APIError codes.
const (
	codeRefused       = -3
	codeAccountChange = -4
	// TxSignError.UserDeclined
	codeSignDeclined = 2
)

// Bridge talks to a wallet bridge: a page in the user's browser that relays
// CIP-30 calls from this process to the installed extension.
type Bridge struct {
	rest *rest.Client
}

// NewBridge creates a Bridge client.
func NewBridge(baseURL, token string, timeout time.Duration) *Bridge {
	c := rest.New(baseURL, timeout)
	if token != "" {
		c.WithHeader("Authorization", "Bearer "+token)
	}
	return &Bridge{rest: c}
}

// Wallets lists the extensions the bridge can see.
func (b *Bridge) Wallets(ctx context.Context) ([]string, error) {
	var resp struct {
		Wallets []string `json:"wallets"`
	}
	if err := b.rest.GetJSON(ctx, "/wallets", &resp); err != nil {
		return nil, fmt.Errorf("wallet: bridge: list: %w", err)
	}
	return resp.Wallets, nil
}

// Connector returns the connector for one extension.
func (b *Bridge) Connector(name string) *BridgeConnector {
	return &BridgeConnector{bridge: b, name: name}
}

// BridgeConnector enables one extension through the bridge.
type BridgeConnector struct {
	bridge *Bridge
	name   string
}

func (c *BridgeConnector) Name() string { return c.name }

// Enable asks the extension for access. The user may decline.
func (c *BridgeConnector) Enable(ctx context.Context) (domain.WalletAPI, error) {
	var resp struct {
		Session string     `json:"session"`
		Error   *callError `json:"error"`
	}
	err := c.bridge.rest.PostJSON(ctx, "/wallets/"+url.PathEscape(c.name)+"/enable", struct{}{}, &resp)
	if err != nil {
		return nil, bridgeError("enable", err)
	}
	if resp.Error != nil {
		return nil, resp.Error.classify("enable")
	}
	return &BridgeAPI{bridge: c.bridge, wallet: c.name, session: resp.Session}, nil
}

type callError struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

func (e *callError) classify(method string) error {
	switch e.Code {
	case codeRefused:
		return fmt.Errorf("%w: %s: %s", domain.ErrWalletDeclined, method, e.Info)
	case codeSignDeclined:
		if method == "signTx" || method == "signData" {
			return fmt.Errorf("%w: %w: %s", domain.ErrSigningFailed, domain.ErrWalletDeclined, e.Info)
		}
	case codeAccountChange:
		return fmt.Errorf("%w: %s: account changed: %s", domain.ErrWalletNotConnected, method, e.Info)
	}
	return fmt.Errorf("wallet: bridge: %s: code %d: %s", method, e.Code, e.Info)
}

// bridgeError maps the bridge's HTTP failures onto wallet sentinels.
func bridgeError(method string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: %s: %w", domain.ErrWalletNotFound, method, err)
	case errors.Is(err, domain.ErrUnauthorized):
		return fmt.Errorf("%w: %s: %w", domain.ErrWalletDeclined, method, err)
	}
	return fmt.Errorf("wallet: bridge: %s: %w", method, err)
}

// BridgeAPI is an enabled extension reached through the bridge.
type BridgeAPI struct {
	bridge  *Bridge
	wallet  string
	session string
}

func (a *BridgeAPI) call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	req := struct {
		Session string `json:"session"`
		Method  string `json:"method"`
		Params  []any  `json:"params"`
	}{a.session, method, params}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *callError      `json:"error"`
	}
	if err := a.bridge.rest.PostJSON(ctx, "/wallets/"+url.PathEscape(a.wallet)+"/call", req, &resp); err != nil {
		return bridgeError(method, err)
	}
	if resp.Error != nil {
		return resp.Error.classify(method)
	}
	if out == nil || len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("wallet: bridge: %s: decode result: %w", method, err)
	}
	return nil
}

func (a *BridgeAPI) GetNetworkID(ctx context.Context) (int, error) {
	var id int
	err := a.call(ctx, "getNetworkId", &id)
	return id, err
}

func (a *BridgeAPI) GetBalance(ctx context.Context) (string, error) {
	var v string
	err := a.call(ctx, "getBalance", &v)
	return v, err
}

func (a *BridgeAPI) GetUtxos(ctx context.Context) ([]string, error) {
	var v []string
	err := a.call(ctx, "getUtxos", &v)
	return v, err
}

func (a *BridgeAPI) GetChangeAddress(ctx context.Context) (string, error) {
	var v string
	err := a.call(ctx, "getChangeAddress", &v)
	return v, err
}

func (a *BridgeAPI) GetUsedAddresses(ctx context.Context) ([]string, error) {
	var v []string
	err := a.call(ctx, "getUsedAddresses", &v)
	return v, err
}

func (a *BridgeAPI) GetRewardAddresses(ctx context.Context) ([]string, error) {
	var v []string
	err := a.call(ctx, "getRewardAddresses", &v)
	return v, err
}

func (a *BridgeAPI) SignTx(ctx context.Context, txCBOR string, partial bool) (string, error) {
	var v string
	err := a.call(ctx, "signTx", &v, txCBOR, partial)
	return v, err
}

func (a *BridgeAPI) SubmitTx(ctx context.Context, txCBOR string) (string, error) {
	var v string
	err := a.call(ctx, "submitTx", &v, txCBOR)
	return v, err
}

func (a *BridgeAPI) SignData(ctx context.Context, address, payloadHex string) (domain.DataSignature, error) {
	var v domain.DataSignature
	err := a.call(ctx, "signData", &v, address, payloadHex)
	return v, err
}

var (
	_ domain.WalletAPI       = (*BridgeAPI)(nil)
	_ domain.WalletConnector = (*BridgeConnector)(nil)
)
