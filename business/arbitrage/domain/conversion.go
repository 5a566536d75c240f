package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
)

const (
	usd  = "USD"
	usdt = "USDT"
	busd = "BUSD"
)

// ConversionPlan is the single market order that swaps the home stablecoin into
// another one. Amount is raw and still needs lot size normalization.
type ConversionPlan struct {
	Symbol string
	Side   marketDomain.Side
	Field  marketDomain.QuantityField
	Amount decimal.Decimal
}

func (p ConversionPlan) String() string {
	return fmt.Sprintf("%s %s %s=%s", p.Side, p.Symbol, p.Field, p.Amount)
}

// PlanConversion returns the order that turns home into dest. Supported routes:
//
//	home USD        -> BUY  dest+USD  by quoteOrderQty
//	dest USD        -> SELL home+USD  by quantity
//	BUSD to USDT    -> SELL BUSDUSDT  by quantity
//	USDT to BUSD    -> BUY  BUSDUSDT  by quoteOrderQty
//
// Every other combination fails with NO_CONVERSION_PATH.
func PlanConversion(home, dest string, amount decimal.Decimal) (ConversionPlan, error) {
	switch {
	case home == dest:
		return ConversionPlan{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("%s is already the home stablecoin", dest)))
	case home == usd:
		return ConversionPlan{
			Symbol: marketDomain.Symbol(dest, usd),
			Side:   marketDomain.SideBuy,
			Field:  marketDomain.FieldQuoteOrderQty,
			Amount: amount,
		}, nil
	case dest == usd:
		return ConversionPlan{
			Symbol: marketDomain.Symbol(home, usd),
			Side:   marketDomain.SideSell,
			Field:  marketDomain.FieldQuantity,
			Amount: amount,
		}, nil
	case home == busd && dest == usdt:
		return ConversionPlan{
			Symbol: marketDomain.Symbol(busd, usdt),
			Side:   marketDomain.SideSell,
			Field:  marketDomain.FieldQuantity,
			Amount: amount,
		}, nil
	case home == usdt && dest == busd:
		return ConversionPlan{
			Symbol: marketDomain.Symbol(busd, usdt),
			Side:   marketDomain.SideBuy,
			Field:  marketDomain.FieldQuoteOrderQty,
			Amount: amount,
		}, nil
	}

	return ConversionPlan{}, apperror.New(apperror.CodeNoConversionPath,
		apperror.WithContext(fmt.Sprintf("%s to %s", home, dest)))
}

// ConversionSymbols lists every pair a conversion between the given stablecoins
// may trade, in first-seen order.
func ConversionSymbols(stablecoins []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, home := range stablecoins {
		for _, dest := range stablecoins {
			plan, err := PlanConversion(home, dest, decimal.Zero)
			if err != nil {
				continue
			}
			if _, ok := seen[plan.Symbol]; ok {
				continue
			}
			seen[plan.Symbol] = struct{}{}
			out = append(out, plan.Symbol)
		}
	}
	return out
}
