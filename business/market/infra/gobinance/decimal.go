package gobinance

import "github.com/shopspring/decimal"

func parseOptionalDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
