// Package arbitrage implements the stablecoin cross-pair arbitrage context.
package arbitrage

import (
	"context"

	"github.com/fd1az/stablearb/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/stablearb/business/arbitrage/di"
	"github.com/fd1az/stablearb/business/arbitrage/infra"
	marketDI "github.com/fd1az/stablearb/business/market/di"
	"github.com/fd1az/stablearb/internal/config"
	"github.com/fd1az/stablearb/internal/di"
	"github.com/fd1az/stablearb/internal/logger"
	"github.com/fd1az/stablearb/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Metrics, func(sr di.ServiceRegistry) *app.Metrics {
		log := sr.Get("logger").(logger.LoggerInterface)

		metrics, err := app.NewMetrics(nil)
		if err != nil {
			log.Warn(context.Background(), "arbitrage metrics disabled", "error", err)
			return nil
		}
		return metrics
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.App.TUIMode {
			return infra.NewTUIReporter(nil)
		}
		return infra.NewConsoleReporter(nil)
	})

	di.RegisterToken(c, arbitrageDI.Trader, func(sr di.ServiceRegistry) *app.Trader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewTrader(
			TraderConfig(cfg.Trading),
			marketDI.GetMarketService(sr),
			arbitrageDI.GetReporter(sr),
			arbitrageDI.GetMetrics(sr),
			log,
		)
	})

	return nil
}

// TraderConfig maps the trading configuration onto the trader settings.
func TraderConfig(cfg config.TradingConfig) app.TraderConfig {
	return app.TraderConfig{
		Stablecoins:  cfg.Stablecoins,
		BaseTokens:   cfg.BaseTokens,
		PollInterval: cfg.PollInterval,
		HaltOnError:  cfg.HaltOnError,
		Finder: app.FinderConfig{
			ProfitThresholdPercent: cfg.ProfitThresholdDecimal(),
			HomeDiscountPercent:    cfg.HomeDiscountDecimal(),
			MinTradeNotional:       cfg.MinTradeNotionalDecimal(),
			MaxTradeNotional:       cfg.MaxTradeNotionalDecimal(),
		},
	}
}

// Startup resolves the trader. Trading begins when the caller runs it.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	arbitrageDI.GetTrader(mono.Services())

	log.Info(ctx, "arbitrage module started",
		"stablecoins", cfg.Trading.Stablecoins,
		"base_tokens", len(cfg.Trading.BaseTokens),
		"threshold_percent", cfg.Trading.ProfitThresholdPercent,
		"max_trade", cfg.Trading.MaxTradeNotional,
		"tui", cfg.App.TUIMode)
	return nil
}
