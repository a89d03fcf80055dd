// Package defillama reads Cardano DEX protocol TVL and spot prices from the
// DefiLlama API.
package defillama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/rest"
)

// Source labels rows produced by this client.
const Source = "defillama"

// Client talks to the protocols API and the coins price API, which live on
// different hosts.
type Client struct {
	api   *rest.Client
	coins *rest.Client
	chain string
	// volumeFraction estimates 24h volume from TVL; see Heuristics.
	volumeFraction float64
	mcapMultiple   float64
}

// Heuristics holds the provisional TVL-derived estimates.
type Heuristics struct {
	VolumeFraction float64
	MarketCapMult  float64
}

// New creates a Client for chain (normally "Cardano").
func New(apiURL, coinsURL, chain string, h Heuristics, timeout time.Duration) *Client {
	if chain == "" {
		chain = "Cardano"
	}
	return &Client{
		api:            rest.New(apiURL, timeout),
		coins:          rest.New(coinsURL, timeout),
		chain:          chain,
		volumeFraction: h.VolumeFraction,
		mcapMultiple:   h.MarketCapMult,
	}
}

// Protocol is the subset of a /protocols entry the dashboard uses.
type Protocol struct {
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Category string   `json:"category"`
	Chains   []string `json:"chains"`
	TVL      float64  `json:"tvl"`
	Change1d float64  `json:"change_1d"`
}

// DEXes returns the DEX protocols deployed on the configured chain.
func (c *Client) DEXes(ctx context.Context) ([]Protocol, error) {
	var all []Protocol
	if err := c.api.GetJSON(ctx, "/protocols", &all); err != nil {
		return nil, fmt.Errorf("defillama: protocols: %w", err)
	}
	var out []Protocol
	for _, p := range all {
		if !strings.EqualFold(p.Category, "Dexes") && !strings.EqualFold(p.Category, "Dexs") {
			continue
		}
		for _, ch := range p.Chains {
			if strings.EqualFold(ch, c.chain) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// ProtocolMarkets turns DEX TVL into dashboard rows. The numbers are
// estimates: TVL stands in for price, volume is a fixed fraction of TVL and
// market cap is a multiple of that volume.
func (c *Client) ProtocolMarkets(protocols []Protocol, now time.Time) []domain.MarketData {
	out := make([]domain.MarketData, 0, len(protocols))
	for _, p := range protocols {
		sym := p.Symbol
		if sym == "" || sym == "-" {
			sym = p.Name
		}
		volume := p.TVL * c.volumeFraction
		out = append(out, domain.MarketData{
			Symbol:    domain.NormalizeSymbol(sym),
			Price:     p.TVL,
			Change24h: p.Change1d,
			Volume24h: volume,
			MarketCap: volume * c.mcapMultiple,
			UpdatedAt: now,
			Source:    Source,
		})
	}
	return out
}

type coinsResponse struct {
	Coins map[string]struct {
		Price      float64 `json:"price"`
		Symbol     string  `json:"symbol"`
		Timestamp  int64   `json:"timestamp"`
		Confidence float64 `json:"confidence"`
	} `json:"coins"`
}

// Quote returns the aggregated spot price of coin (e.g. "coingecko:cardano")
// as a venue snapshot for pair.
func (c *Client) Quote(ctx context.Context, coin, pair string) (domain.PriceSnapshot, error) {
	var resp coinsResponse
	if err := c.coins.GetJSON(ctx, "/prices/current/"+coin, &resp); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("defillama: price %s: %w", coin, err)
	}
	row, ok := resp.Coins[coin]
	if !ok {
		return domain.PriceSnapshot{}, fmt.Errorf("defillama: price %s: %w", coin, domain.ErrNotFound)
	}
	ts := time.Now().UTC()
	if row.Timestamp > 0 {
		ts = time.Unix(row.Timestamp, 0).UTC()
	}
	return domain.PriceSnapshot{
		Pair:      domain.NormalizeSymbol(pair),
		Venue:     Source,
		Price:     row.Price,
		Timestamp: ts,
	}, nil
}
