package domain

import (
	"fmt"
	"strings"
	"time"
)

// StrategyType enumerates the strategy kinds the dashboard can configure.
type StrategyType string

const (
	StrategyArbitrage    StrategyType = "arbitrage"
	StrategyMarketMaking StrategyType = "market_making"
	StrategyDCA          StrategyType = "dca"
	StrategyGrid         StrategyType = "grid"
	StrategyMomentum     StrategyType = "momentum"
)

var strategyTypes = map[StrategyType]bool{
	StrategyArbitrage:    true,
	StrategyMarketMaking: true,
	StrategyDCA:          true,
	StrategyGrid:         true,
	StrategyMomentum:     true,
}

// ParseStrategyType validates and normalises a strategy kind.
func ParseStrategyType(s string) (StrategyType, error) {
	t := StrategyType(strings.ToLower(strings.TrimSpace(s)))
	if !strategyTypes[t] {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidStrategy, s)
	}
	return t, nil
}

// TradingStrategy is a user-configured strategy row.
type TradingStrategy struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       StrategyType   `json:"type"`
	Active     bool           `json:"active"`
	ProfitLoss float64        `json:"profit_loss"`
	TradeCount int64          `json:"trade_count"`
	Config     map[string]any `json:"config"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Validate checks fields required on create and update.
func (s TradingStrategy) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidStrategy)
	}
	if _, err := ParseStrategyType(string(s.Type)); err != nil {
		return err
	}
	return nil
}
