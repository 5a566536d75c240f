package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Deal is a cross-pair round trip on one base token: buy where the ask is
// lowest, sell where the bid is highest. It is computed fresh every evaluation.
type Deal struct {
	Token          string
	BuyPair        string
	SellPair       string
	BuyStablecoin  string
	SellStablecoin string
	BuyAsk         decimal.Decimal
	SellBid        decimal.Decimal
	SpreadPercent  decimal.Decimal
	// Threshold is the effective profit threshold the spread cleared.
	Threshold decimal.Decimal
	// MaxTradeNotional is bounded by both legs' liquidity and the configured cap.
	MaxTradeNotional decimal.Decimal
}

func (d *Deal) String() string {
	return fmt.Sprintf("BUY %s at %s, SELL %s at %s, spread %s%%, max %s",
		d.BuyPair, d.BuyAsk, d.SellPair, d.SellBid, d.SpreadPercent.StringFixed(4), d.MaxTradeNotional.StringFixed(2))
}
