package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// OpportunityMessage renders a detected opportunity.
func OpportunityMessage(o domain.ArbitrageOpportunity) (title, message string) {
	title = fmt.Sprintf("%s arbitrage %s (%.2f%%)", strings.ToUpper(string(o.Confidence)), o.Pair, o.ProfitPct)
	message = fmt.Sprintf("Buy on %s at %.6f, sell on %s at %.6f\nVolume %.2f, est. profit %.4f ADA, risk %.2f\nExpires %s",
		o.BuyVenue, o.BuyPrice, o.SellVenue, o.SellPrice,
		o.VolumeAvailable, o.ProfitADA, o.RiskScore,
		o.ExpiresAt.UTC().Format("15:04:05 MST"),
	)
	return title, message
}

// TradeMessage renders an execution outcome and the event it belongs to.
func TradeMessage(rec domain.TradeRecord) (event, title, message string) {
	event = EventTrade
	if rec.Status != domain.TradeSuccess {
		event = EventTradeFailed
	}
	title = fmt.Sprintf("Trade %s: %s %s -> %s", rec.Status, rec.Pair, rec.BuyVenue, rec.SellVenue)

	var b strings.Builder
	fmt.Fprintf(&b, "Amount %.4f, buy %.6f, sell %.6f", rec.Amount, rec.BuyPrice, rec.SellPrice)
	if rec.BuyTxID != "" {
		fmt.Fprintf(&b, "\nBuy tx %s", rec.BuyTxID)
	}
	if rec.SellTxID != "" {
		fmt.Fprintf(&b, "\nSell tx %s", rec.SellTxID)
	}
	if rec.Status == domain.TradeSuccess {
		fmt.Fprintf(&b, "\nProfit %.4f ADA", rec.ProfitADA)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "\nError: %s", rec.Error)
	}
	return event, title, b.String()
}

// PositionMessage renders a position lifecycle change.
func PositionMessage(action string, p domain.Position) (title, message string) {
	title = fmt.Sprintf("Position %s: %s on %s", action, p.Pair, p.Venue)
	message = fmt.Sprintf("Liquidity %.2f, spread %.2f%%, status %s", p.Liquidity, p.Spread, p.Status)
	return title, message
}
