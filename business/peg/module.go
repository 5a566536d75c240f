// Package peg implements the USDT/USD peg limit-order context.
package peg

import (
	"context"

	marketDI "github.com/fd1az/stablearb/business/market/di"
	"github.com/fd1az/stablearb/business/peg/app"
	pegDI "github.com/fd1az/stablearb/business/peg/di"
	"github.com/fd1az/stablearb/internal/config"
	"github.com/fd1az/stablearb/internal/di"
	"github.com/fd1az/stablearb/internal/logger"
	"github.com/fd1az/stablearb/internal/monolith"
)

// Module implements the peg bounded context.
type Module struct{}

// RegisterServices registers the peg trader with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pegDI.PegTrader, func(sr di.ServiceRegistry) *app.PegTrader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pegCfg, err := ParseConfig(cfg.Peg)
		if err != nil {
			panic("invalid peg config: " + err.Error())
		}
		return app.NewPegTrader(pegCfg, marketDI.GetMarketService(sr), log)
	})
	return nil
}

// ParseConfig converts the peg configuration section.
func ParseConfig(cfg config.PegConfig) (app.Config, error) {
	return app.ParseConfig(cfg.Symbol, cfg.BaseAsset, cfg.QuoteAsset, cfg.OrderSize, cfg.BuyPrice, cfg.SellPrice, cfg.Interval)
}

// Startup validates the peg configuration before the trader is resolved.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	if _, err := ParseConfig(cfg.Peg); err != nil {
		return err
	}

	pegDI.GetPegTrader(mono.Services())
	mono.Logger().Info(ctx, "peg module started",
		"symbol", cfg.Peg.Symbol,
		"buy_price", cfg.Peg.BuyPrice,
		"sell_price", cfg.Peg.SellPrice)
	return nil
}
