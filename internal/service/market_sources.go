package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/platform/coingecko"
	"github.com/alanyoungcy/cardanodash/internal/platform/defillama"
)

// TickerClient is the part of the CoinGecko client a source needs.
type TickerClient interface {
	Markets(ctx context.Context) ([]domain.MarketData, error)
	Quote(md domain.MarketData) domain.PriceSnapshot
}

// ProtocolClient is the part of the DefiLlama client a source needs.
type ProtocolClient interface {
	DEXes(ctx context.Context) ([]defillama.Protocol, error)
	ProtocolMarkets(protocols []defillama.Protocol, now time.Time) []domain.MarketData
	Quote(ctx context.Context, coin, pair string) (domain.PriceSnapshot, error)
}

var (
	_ TickerClient   = (*coingecko.Client)(nil)
	_ ProtocolClient = (*defillama.Client)(nil)
)

// CoinGeckoSource turns CoinGecko tickers into market rows and one venue
// quote per row.
type CoinGeckoSource struct {
	client TickerClient
}

// NewCoinGeckoSource wraps client.
func NewCoinGeckoSource(client TickerClient) *CoinGeckoSource {
	return &CoinGeckoSource{client: client}
}

func (s *CoinGeckoSource) Name() string { return coingecko.Source }

func (s *CoinGeckoSource) Fetch(ctx context.Context) (MarketBatch, error) {
	rows, err := s.client.Markets(ctx)
	if err != nil {
		return MarketBatch{}, err
	}
	b := MarketBatch{Source: coingecko.Source, Markets: rows}
	for _, md := range rows {
		if md.Price > 0 {
			b.Snapshots = append(b.Snapshots, s.client.Quote(md))
		}
	}
	return b, nil
}

// DefiLlamaSource reports Cardano DEX protocols as market rows and, for every
// configured coin, an aggregated spot price as a venue quote.
type DefiLlamaSource struct {
	client ProtocolClient
	// quotes maps a DefiLlama coin id to the pair it prices,
	// e.g. "coingecko:cardano" -> "ADA/USD".
	quotes map[string]string
	now    func() time.Time
}

// NewDefiLlamaSource wraps client.
func NewDefiLlamaSource(client ProtocolClient, quotes map[string]string) *DefiLlamaSource {
	return &DefiLlamaSource{client: client, quotes: quotes, now: time.Now}
}

func (s *DefiLlamaSource) Name() string { return defillama.Source }

// Fetch fails only when nothing could be read. A failed quote is dropped
// while protocol rows are still returned, and the other way round.
func (s *DefiLlamaSource) Fetch(ctx context.Context) (MarketBatch, error) {
	b := MarketBatch{Source: defillama.Source}
	var errs []error

	protocols, err := s.client.DEXes(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		b.Markets = s.client.ProtocolMarkets(protocols, s.now().UTC())
	}

	for coin, pair := range s.quotes {
		snap, err := s.client.Quote(ctx, coin, pair)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.Snapshots = append(b.Snapshots, snap)
	}

	if len(b.Markets) == 0 && len(b.Snapshots) == 0 && len(errs) > 0 {
		return MarketBatch{}, fmt.Errorf("defillama source: %w", errors.Join(errs...))
	}
	return b, nil
}
