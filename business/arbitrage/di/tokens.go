// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/stablearb/business/arbitrage/app"
	"github.com/fd1az/stablearb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Trader = di.NewToken[*app.Trader]("arbitrage.Trader")
)

// Private dependency tokens - internal to arbitrage module
var (
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
	Metrics  = di.NewToken[*app.Metrics]("arbitrage:metrics")
)

func GetTrader(c di.ServiceRegistry) *app.Trader {
	return di.GetToken(c, Trader)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetMetrics(c di.ServiceRegistry) *app.Metrics {
	return di.GetToken(c, Metrics)
}
