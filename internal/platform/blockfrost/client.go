// Package blockfrost implements domain.ChainClient over the Blockfrost API.
package blockfrost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/rest"
)

// pageSize is Blockfrost's maximum page size.
const pageSize = 100

// maxPages bounds UTXO pagination for very large addresses.
const maxPages = 50

// Client is a Blockfrost project-scoped client.
type Client struct {
	rest *rest.Client
}

// New creates a Client. baseURL selects the network, e.g.
// https://cardano-mainnet.blockfrost.io/api/v0.
func New(baseURL, projectID string, timeout time.Duration) *Client {
	return &Client{rest: rest.New(baseURL, timeout).WithHeader("project_id", projectID)}
}

type amount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

type addressUTXO struct {
	TxHash      string   `json:"tx_hash"`
	OutputIndex uint32   `json:"output_index"`
	Address     string   `json:"address"`
	Amount      []amount `json:"amount"`
}

type addressInfo struct {
	Address string   `json:"address"`
	Amount  []amount `json:"amount"`
}

// splitAmounts separates lovelace from native assets.
func splitAmounts(amounts []amount) (uint64, map[string]uint64, error) {
	var lovelace uint64
	var assets map[string]uint64
	for _, a := range amounts {
		q, err := strconv.ParseUint(a.Quantity, 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("quantity %q for %s: %w", a.Quantity, a.Unit, err)
		}
		if a.Unit == "lovelace" {
			lovelace += q
			continue
		}
		if assets == nil {
			assets = make(map[string]uint64)
		}
		assets[a.Unit] += q
	}
	return lovelace, assets, nil
}

// AddressUTXOs returns every UTXO at address. An address the chain has never
// seen has no UTXOs.
func (c *Client) AddressUTXOs(ctx context.Context, address string) ([]domain.UTXO, error) {
	var out []domain.UTXO
	for page := 1; page <= maxPages; page++ {
		path := fmt.Sprintf("/addresses/%s/utxos?count=%d&page=%d", url.PathEscape(address), pageSize, page)

		var rows []addressUTXO
		if err := c.rest.GetJSON(ctx, path, &rows); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("blockfrost: utxos %s: %w", address, err)
		}
		for _, r := range rows {
			lovelace, assets, err := splitAmounts(r.Amount)
			if err != nil {
				return nil, fmt.Errorf("blockfrost: utxo %s#%d: %w", r.TxHash, r.OutputIndex, err)
			}
			out = append(out, domain.UTXO{
				TxHash:   r.TxHash,
				Index:    r.OutputIndex,
				Address:  r.Address,
				Lovelace: lovelace,
				Assets:   assets,
			})
		}
		if len(rows) < pageSize {
			break
		}
	}
	return out, nil
}

// AddressBalance returns the lovelace held at address.
func (c *Client) AddressBalance(ctx context.Context, address string) (uint64, error) {
	var info addressInfo
	if err := c.rest.GetJSON(ctx, "/addresses/"+url.PathEscape(address), &info); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("blockfrost: address %s: %w", address, err)
	}
	lovelace, _, err := splitAmounts(info.Amount)
	if err != nil {
		return 0, fmt.Errorf("blockfrost: address %s: %w", address, err)
	}
	return lovelace, nil
}

// SubmitTx posts a signed transaction as raw CBOR and returns its hash.
func (c *Client) SubmitTx(ctx context.Context, txCBOR []byte) (string, error) {
	body, err := c.rest.Do(ctx, http.MethodPost, "/tx/submit", "application/cbor", txCBOR)
	if err != nil {
		return "", fmt.Errorf("blockfrost: submit tx: %w", err)
	}
	var txID string
	if err := json.Unmarshal(body, &txID); err != nil {
		return "", fmt.Errorf("blockfrost: decode tx id: %w", err)
	}
	return txID, nil
}

var _ domain.ChainClient = (*Client)(nil)
