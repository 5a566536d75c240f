package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	"github.com/fd1az/stablearb/internal/logger"
)

// Converter swaps the home stablecoin into the one a deal buys with.
type Converter struct {
	orders    *orderRunner
	portfolio *Portfolio
	metrics   *Metrics
	logger    logger.LoggerInterface
}

// NewConverter creates a Converter placing orders through gateway.
func NewConverter(gateway OrderGateway, portfolio *Portfolio, metrics *Metrics, log logger.LoggerInterface) *Converter {
	return &Converter{
		orders:    &orderRunner{gateway: gateway, portfolio: portfolio, logger: log},
		portfolio: portfolio,
		metrics:   metrics,
		logger:    log,
	}
}

// Convert makes at least amount of dest available, spending home. It is a no-op
// when dest is home or the free balance already covers amount.
func (c *Converter) Convert(ctx context.Context, dest string, amount decimal.Decimal, home string) (bool, error) {
	_, err := c.convert(ctx, dest, amount, home)
	return err == nil, err
}

// convert returns the conversion leg, nil when no order was needed.
func (c *Converter) convert(ctx context.Context, dest string, amount decimal.Decimal, home string) (*LegResult, error) {
	if dest == home || c.portfolio.Free(dest).GreaterThanOrEqual(amount) {
		return nil, nil
	}

	plan, err := domain.PlanConversion(home, dest, amount)
	if err != nil {
		c.logger.Warn(ctx, "no conversion path", "home", home, "dest", dest, "error", err)
		c.metrics.RecordConversion(ctx, home, dest, false)
		return nil, err
	}

	c.logger.Info(ctx, "swapping stablecoin", "home", home, "dest", dest, "plan", plan.String())

	leg, err := c.orders.place(ctx, LegConvert, plan.Symbol, plan.Side, plan.Field, plan.Amount)
	c.metrics.RecordConversion(ctx, home, dest, err == nil)
	return &leg, err
}
