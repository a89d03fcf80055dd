package domain

import "time"

// TradeStatus classifies the outcome of a simulated arbitrage execution.
type TradeStatus string

const (
	TradeSuccess TradeStatus = "success"
	TradePartial TradeStatus = "partial"
	TradeFailed  TradeStatus = "failed"
)

// TradeResult is returned by the executor for every attempt.
type TradeResult struct {
	Success  bool        `json:"success"`
	Status   TradeStatus `json:"status"`
	BuyTxID  string      `json:"buy_tx_id,omitempty"`
	SellTxID string      `json:"sell_tx_id,omitempty"`
	Error    string      `json:"error,omitempty"`
	// Partial is true when the buy leg went through but the sell leg did not.
	Partial bool `json:"partial"`
}

// TradeRecord is one row of trade history.
type TradeRecord struct {
	ID            string      `json:"id"`
	OpportunityID string      `json:"opportunity_id"`
	Pair          string      `json:"pair"`
	BuyVenue      string      `json:"buy_venue"`
	SellVenue     string      `json:"sell_venue"`
	Amount        float64     `json:"amount"`
	BuyPrice      float64     `json:"buy_price"`
	SellPrice     float64     `json:"sell_price"`
	ProfitADA     float64     `json:"profit_ada"`
	Status        TradeStatus `json:"status"`
	BuyTxID       string      `json:"buy_tx_id,omitempty"`
	SellTxID      string      `json:"sell_tx_id,omitempty"`
	Error         string      `json:"error,omitempty"`
	Wallet        string      `json:"wallet"`
	CreatedAt     time.Time   `json:"created_at"`
}
