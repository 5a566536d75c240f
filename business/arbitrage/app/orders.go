package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

// OrderGateway places market orders against cached lot size rules.
type OrderGateway interface {
	LotSizeRule(symbol string) (marketDomain.LotSizeRule, error)
	PlaceMarketOrder(ctx context.Context, order marketDomain.MarketOrder) (*marketDomain.OrderResult, error)
}

// orderRunner places one leg: normalize, submit, refresh balances, check fill.
type orderRunner struct {
	gateway   OrderGateway
	portfolio *Portfolio
	logger    logger.LoggerInterface
}

func (r *orderRunner) place(
	ctx context.Context,
	kind LegKind,
	symbol string,
	side marketDomain.Side,
	field marketDomain.QuantityField,
	amount decimal.Decimal,
) (LegResult, error) {
	leg := LegResult{Kind: kind}

	rule, err := r.gateway.LotSizeRule(symbol)
	if err != nil {
		leg.Err = err
		return leg, err
	}

	qty, err := domain.NormalizeQuantity(amount, rule)
	if err != nil {
		leg.Err = err
		return leg, err
	}

	leg.Order = marketDomain.MarketOrder{Symbol: symbol, Side: side, Field: field, Amount: qty}

	res, err := r.gateway.PlaceMarketOrder(ctx, leg.Order)
	if err != nil {
		leg.Err = err
		return leg, err
	}
	leg.Result = res

	// The next leg is sized from the balances this order produced.
	if err := r.portfolio.Refresh(ctx); err != nil {
		leg.Err = err
		return leg, err
	}

	if !res.Filled() {
		err := apperror.New(apperror.CodeOrderNotFilled,
			apperror.WithContext(fmt.Sprintf("%s leg %s status=%q", kind, leg.Order, res.Status)))
		r.logger.Warn(ctx, "order not filled",
			"leg", string(kind),
			"order", leg.Order.String(),
			"status", string(res.Status),
			"partial_fill", res.Status == marketDomain.OrderStatusPartiallyFilled,
			"test", res.Test)
		leg.Err = err
		return leg, err
	}

	return leg, nil
}
