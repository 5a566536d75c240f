// Package di contains dependency injection tokens for the peg context.
package di

import (
	"github.com/fd1az/stablearb/business/peg/app"
	"github.com/fd1az/stablearb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PegTrader = di.NewToken[*app.PegTrader]("peg.Trader")
)

func GetPegTrader(c di.ServiceRegistry) *app.PegTrader {
	return di.GetToken(c, PegTrader)
}
