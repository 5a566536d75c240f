// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
)

var ten = decimal.NewFromInt(10)

// Precision returns the number of decimal places implied by a lot step size:
// how many times step must be multiplied by 10 to reach at least 1.
func Precision(step decimal.Decimal) (int32, error) {
	if !step.IsPositive() {
		return 0, apperror.New(apperror.CodeInvalidPrecision,
			apperror.WithContext(fmt.Sprintf("step size %s", step)))
	}

	var n int32
	for s := step; s.LessThan(decimal.NewFromInt(1)); s = s.Mul(ten) {
		n++
	}
	return n, nil
}

// NormalizeQuantity makes quantity acceptable to a pair's LOT_SIZE filter.
// Values below MinQty are raised to it, then the result is truncated toward
// zero to the step precision and formatted with exactly that many decimals.
// The result never falls below MinQty.
func NormalizeQuantity(quantity decimal.Decimal, rule marketDomain.LotSizeRule) (string, error) {
	n, err := Precision(rule.StepSize)
	if err != nil {
		return "", err
	}

	if quantity.LessThan(rule.MinQty) {
		quantity = rule.MinQty
	}

	out := quantity.Truncate(n)
	if out.LessThan(rule.MinQty) {
		// MinQty is finer than the step.
		out = rule.MinQty.RoundCeil(n)
	}

	return out.StringFixed(n), nil
}
