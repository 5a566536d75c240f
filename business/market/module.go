// Package market implements the exchange market data and order routing context.
package market

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/stablearb/business/market/app"
	marketDI "github.com/fd1az/stablearb/business/market/di"
	"github.com/fd1az/stablearb/business/market/infra/binanceus"
	"github.com/fd1az/stablearb/business/market/infra/gobinance"
	"github.com/fd1az/stablearb/internal/config"
	"github.com/fd1az/stablearb/internal/di"
	"github.com/fd1az/stablearb/internal/logger"
	"github.com/fd1az/stablearb/internal/monolith"
)

// BreakerReporter is implemented by exchanges that run behind a circuit breaker.
type BreakerReporter interface {
	BreakerState() gobreaker.State
}

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.Exchange, func(sr di.ServiceRegistry) app.Exchange {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		ex, err := NewExchange(cfg.Exchange, log)
		if err != nil {
			panic("failed to create exchange: " + err.Error())
		}
		return ex
	})

	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.Service {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewService(marketDI.GetExchange(sr), log)
	})

	return nil
}

// NewExchange builds the driver selected by cfg.Driver.
func NewExchange(cfg config.ExchangeConfig, log logger.LoggerInterface) (app.Exchange, error) {
	switch cfg.Driver {
	case config.DriverSDK:
		return gobinance.New(gobinance.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			APISecret:         cfg.APISecret,
			RecvWindow:        cfg.RecvWindow,
			RequestTimeout:    cfg.RequestTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
			DryRun:            cfg.DryRun,
		}, log)
	case config.DriverREST, "":
		return binanceus.NewClient(binanceus.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			APISecret:         cfg.APISecret,
			RecvWindow:        cfg.RecvWindow,
			RequestTimeout:    cfg.RequestTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
			DryRun:            cfg.DryRun,
			TraceBodies:       cfg.TraceBodies,
		}, log)
	default:
		return nil, fmt.Errorf("unknown exchange driver %q", cfg.Driver)
	}
}

// Startup resolves the exchange so configuration errors surface before trading.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	svc := marketDI.GetMarketService(mono.Services())

	log.Info(ctx, "market module started",
		"exchange", svc.ExchangeName(),
		"base_url", cfg.Exchange.BaseURL,
		"dry_run", cfg.Exchange.DryRun)
	return nil
}
