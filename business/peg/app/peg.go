// Package app contains the peg trader, which rests limit orders around the
// USDT/USD peg.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apm"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

// Gateway is the slice of the market service the peg trader uses.
type Gateway interface {
	SyncTime(ctx context.Context) (time.Duration, error)
	RefreshBalances(ctx context.Context) (*marketDomain.BalanceSnapshot, error)
	PlaceLimitOrder(ctx context.Context, order marketDomain.LimitOrder) (*marketDomain.OrderResult, error)
}

// Config holds the peg levels. OrderSize is in base asset units.
type Config struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	OrderSize  decimal.Decimal
	BuyPrice   decimal.Decimal
	SellPrice  decimal.Decimal
	Interval   time.Duration
}

// ParseConfig builds a Config from its string form.
func ParseConfig(symbol, base, quote, orderSize, buyPrice, sellPrice string, interval time.Duration) (Config, error) {
	cfg := Config{Symbol: symbol, BaseAsset: base, QuoteAsset: quote, Interval: interval}

	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"order_size", orderSize, &cfg.OrderSize},
		{"buy_price", buyPrice, &cfg.BuyPrice},
		{"sell_price", sellPrice, &cfg.SellPrice},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Config{}, apperror.New(apperror.CodeInvalidFormat,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("peg.%s=%q", f.name, f.raw)))
		}
		if !d.IsPositive() {
			return Config{}, apperror.New(apperror.CodeValidationError,
				apperror.WithContext(fmt.Sprintf("peg.%s must be positive", f.name)))
		}
		*f.dst = d
	}

	if interval <= 0 {
		return Config{}, apperror.New(apperror.CodeValidationError,
			apperror.WithContext("peg.interval must be positive"))
	}
	if cfg.BuyPrice.GreaterThanOrEqual(cfg.SellPrice) {
		return Config{}, apperror.New(apperror.CodeValidationError,
			apperror.WithContext("peg.buy_price must be below peg.sell_price"))
	}
	return cfg, nil
}

// Decide returns the limit orders to rest for the given balances: a BUY when
// the free quote balance exceeds the order size, a SELL when the free base
// balance does.
func Decide(cfg Config, balances *marketDomain.BalanceSnapshot) []marketDomain.LimitOrder {
	var orders []marketDomain.LimitOrder
	qty := cfg.OrderSize.String()

	if balances.Free(cfg.QuoteAsset).GreaterThan(cfg.OrderSize) {
		orders = append(orders, marketDomain.LimitOrder{
			Symbol:   cfg.Symbol,
			Side:     marketDomain.SideBuy,
			Quantity: qty,
			Price:    cfg.BuyPrice.String(),
		})
	}
	if balances.Free(cfg.BaseAsset).GreaterThan(cfg.OrderSize) {
		orders = append(orders, marketDomain.LimitOrder{
			Symbol:   cfg.Symbol,
			Side:     marketDomain.SideSell,
			Quantity: qty,
			Price:    cfg.SellPrice.String(),
		})
	}
	return orders
}

// PegTrader periodically rests limit orders at the configured peg levels.
type PegTrader struct {
	cfg     Config
	gateway Gateway
	logger  logger.LoggerInterface
	tracer  apm.Tracer

	rounds      uint64
	lastSuccess atomic.Int64
}

// NewPegTrader creates a PegTrader.
func NewPegTrader(cfg Config, gateway Gateway, log logger.LoggerInterface) *PegTrader {
	return &PegTrader{
		cfg:     cfg,
		gateway: gateway,
		logger:  log,
		tracer:  apm.NewTracer("peg"),
	}
}

// RunOnce refreshes balances and places whatever orders Decide returns. It
// stops at the first rejected order.
func (p *PegTrader) RunOnce(ctx context.Context) ([]*marketDomain.OrderResult, error) {
	p.rounds++
	ctx, span := p.tracer.StartSpanFromContext(ctx, "peg.round")
	defer span.End()
	span.SetAttribute(attribute.Int64("round", int64(p.rounds)))

	if _, err := p.gateway.SyncTime(ctx); err != nil {
		span.NoticeError(err)
		return nil, err
	}

	balances, err := p.gateway.RefreshBalances(ctx)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	orders := Decide(p.cfg, balances)
	if len(orders) == 0 {
		p.logger.Debug(ctx, "peg round idle",
			p.cfg.QuoteAsset, balances.Free(p.cfg.QuoteAsset).String(),
			p.cfg.BaseAsset, balances.Free(p.cfg.BaseAsset).String())
	}

	results := make([]*marketDomain.OrderResult, 0, len(orders))
	for _, order := range orders {
		res, err := p.gateway.PlaceLimitOrder(ctx, order)
		if err != nil {
			span.NoticeError(err)
			p.logger.Error(ctx, "peg order failed", append([]any{"order", order.String()}, apperror.LogArgs(err)...)...)
			return results, err
		}
		p.logger.Info(ctx, "peg order placed",
			"order", order.String(),
			"order_id", res.OrderID,
			"status", string(res.Status),
			"test", res.Test)
		results = append(results, res)
	}

	p.lastSuccess.Store(time.Now().UnixNano())
	return results, nil
}

// Run calls RunOnce immediately and then every Interval until ctx is
// cancelled. Failed rounds are logged and retried on the next tick.
func (p *PegTrader) Run(ctx context.Context) error {
	p.logger.Info(ctx, "starting peg trader",
		"symbol", p.cfg.Symbol,
		"order_size", p.cfg.OrderSize.String(),
		"buy_price", p.cfg.BuyPrice.String(),
		"sell_price", p.cfg.SellPrice.String(),
		"interval", p.cfg.Interval.String())

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn(ctx, "peg round failed", "round", p.rounds, "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "peg trader stopping", "rounds", p.rounds)
			return nil
		case <-ticker.C:
		}
	}
}

// LastSuccess returns when the last round completed without error.
func (p *PegTrader) LastSuccess() time.Time {
	ns := p.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
