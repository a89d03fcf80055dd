// Package coingecko fetches spot tickers from the CoinGecko REST API.
package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/rest"
)

// Source labels rows produced by this client.
const Source = "coingecko"

// Client queries /coins/markets for a fixed set of coin ids.
type Client struct {
	rest     *rest.Client
	ids      []string
	currency string
}

// New creates a Client. apiKey is optional and sent as x-cg-demo-api-key.
func New(baseURL, apiKey string, ids []string, currency string, timeout time.Duration) *Client {
	rc := rest.New(baseURL, timeout)
	if apiKey != "" {
		rc.WithHeader("x-cg-demo-api-key", apiKey)
	}
	if currency == "" {
		currency = "usd"
	}
	return &Client{rest: rc, ids: ids, currency: strings.ToLower(currency)}
}

type coinMarket struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	TotalVolume              float64 `json:"total_volume"`
	MarketCap                float64 `json:"market_cap"`
	LastUpdated              string  `json:"last_updated"`
}

// Markets returns one MarketData row per configured coin.
func (c *Client) Markets(ctx context.Context) ([]domain.MarketData, error) {
	params := url.Values{}
	params.Set("vs_currency", c.currency)
	params.Set("ids", strings.Join(c.ids, ","))

	var rows []coinMarket
	if err := c.rest.GetJSON(ctx, "/coins/markets?"+params.Encode(), &rows); err != nil {
		return nil, fmt.Errorf("coingecko: markets: %w", err)
	}

	now := time.Now().UTC()
	out := make([]domain.MarketData, 0, len(rows))
	for _, r := range rows {
		updated := now
		if ts, err := time.Parse(time.RFC3339, r.LastUpdated); err == nil {
			updated = ts.UTC()
		}
		out = append(out, domain.MarketData{
			Symbol:    domain.NormalizeSymbol(r.Symbol),
			Price:     r.CurrentPrice,
			Change24h: r.PriceChangePercentage24h,
			Volume24h: r.TotalVolume,
			MarketCap: r.MarketCap,
			UpdatedAt: updated,
			Source:    Source,
		})
	}
	return out, nil
}

// Quote converts a market row into a venue snapshot quoted in the client's
// currency, e.g. ADA/USD.
func (c *Client) Quote(md domain.MarketData) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Pair:      md.Symbol + "/" + strings.ToUpper(c.currency),
		Venue:     Source,
		Price:     md.Price,
		Volume:    md.Volume24h,
		Timestamp: md.UpdatedAt,
	}
}
