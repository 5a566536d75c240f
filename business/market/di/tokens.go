// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/stablearb/business/market/app"
	"github.com/fd1az/stablearb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	MarketService = di.NewToken[*app.Service]("market.Service")
)

// Private dependency tokens - internal to market module
var (
	Exchange = di.NewToken[app.Exchange]("market:exchange")
)

func GetMarketService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, MarketService)
}

func GetExchange(c di.ServiceRegistry) app.Exchange {
	return di.GetToken(c, Exchange)
}
