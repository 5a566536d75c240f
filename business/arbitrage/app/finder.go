package app

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
)

var hundred = decimal.NewFromInt(100)

// FinderConfig holds the deal thresholds. Percent values are percentage points.
type FinderConfig struct {
	ProfitThresholdPercent decimal.Decimal
	// HomeDiscountPercent lowers the threshold when the buy leg is quoted in
	// the home stablecoin, since no conversion is needed.
	HomeDiscountPercent decimal.Decimal
	MinTradeNotional    decimal.Decimal
	MaxTradeNotional    decimal.Decimal
}

// DefaultFinderConfig returns the stock thresholds.
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		ProfitThresholdPercent: decimal.RequireFromString("0.25"),
		HomeDiscountPercent:    decimal.RequireFromString("0.075"),
		MinTradeNotional:       decimal.NewFromInt(10),
		MaxTradeNotional:       decimal.NewFromInt(100),
	}
}

// DealFinder evaluates one base token against a quote snapshot. It holds no
// state beyond its configuration.
type DealFinder struct {
	cfg FinderConfig
}

// NewDealFinder creates a DealFinder.
func NewDealFinder(cfg FinderConfig) *DealFinder {
	return &DealFinder{cfg: cfg}
}

type candidate struct {
	stablecoin string
	quote      marketDomain.Quote
}

// FindBestDeal returns the most profitable buy-low/sell-high pair for token
// across its stablecoin pairs, or nil when no pair clears the threshold and
// the minimum notional. Only two-sided quotes count; ties keep the pair whose
// stablecoin comes first.
func (f *DealFinder) FindBestDeal(token string, stablecoins []string, quotes *marketDomain.QuoteSnapshot, home string) *domain.Deal {
	candidates := make([]candidate, 0, len(stablecoins))
	for _, coin := range stablecoins {
		q, ok := quotes.Quote(marketDomain.Symbol(token, coin))
		if !ok || !q.IsTwoSided() {
			continue
		}
		candidates = append(candidates, candidate{stablecoin: coin, quote: q})
	}
	if len(candidates) < 2 {
		return nil
	}

	buy, sell := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c.quote.AskPrice.LessThan(buy.quote.AskPrice) {
			buy = c
		}
		if c.quote.BidPrice.GreaterThan(sell.quote.BidPrice) {
			sell = c
		}
	}
	if buy.stablecoin == sell.stablecoin {
		return nil
	}

	spread := sell.quote.BidPrice.Div(buy.quote.AskPrice).Mul(hundred).Sub(hundred)

	threshold := f.cfg.ProfitThresholdPercent
	if buy.stablecoin == home {
		threshold = threshold.Sub(f.cfg.HomeDiscountPercent)
	}
	if spread.LessThan(threshold) {
		return nil
	}

	tradeCap := decimal.Min(buy.quote.AskNotional(), sell.quote.BidNotional(), f.cfg.MaxTradeNotional)
	if tradeCap.LessThan(f.cfg.MinTradeNotional) {
		return nil
	}

	return &domain.Deal{
		Token:            token,
		BuyPair:          buy.quote.Symbol,
		SellPair:         sell.quote.Symbol,
		BuyStablecoin:    buy.stablecoin,
		SellStablecoin:   sell.stablecoin,
		BuyAsk:           buy.quote.AskPrice,
		SellBid:          sell.quote.BidPrice,
		SpreadPercent:    spread,
		Threshold:        threshold,
		MaxTradeNotional: tradeCap,
	}
}
