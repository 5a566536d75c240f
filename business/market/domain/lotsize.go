package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/internal/apperror"
)

// LotSizeRule is a pair's LOT_SIZE filter.
type LotSizeRule struct {
	StepSize decimal.Decimal
	MinQty   decimal.Decimal
}

// ParseLotSizeRule builds a rule from exchangeInfo strings.
func ParseLotSizeRule(symbol, stepSize, minQty string) (LotSizeRule, error) {
	step, err := decimal.NewFromString(stepSize)
	if err != nil {
		return LotSizeRule{}, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s stepSize=%q", symbol, stepSize)))
	}
	minimum, err := decimal.NewFromString(minQty)
	if err != nil {
		return LotSizeRule{}, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s minQty=%q", symbol, minQty)))
	}
	return LotSizeRule{StepSize: step, MinQty: minimum}, nil
}
