// Package app contains application services and port definitions for the market context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/stablearb/business/market/domain"
)

// Exchange is a spot exchange reachable over signed REST.
type Exchange interface {
	// Name identifies the driver in logs and metrics.
	Name() string

	// SyncTime measures the offset between the exchange clock and the local one.
	// Signed calls made afterwards carry the corrected timestamp.
	SyncTime(ctx context.Context) (time.Duration, error)

	// BookTickers lists the best bid/ask of every pair.
	BookTickers(ctx context.Context) ([]domain.BookTicker, error)

	// AccountBalances lists every balance of the account.
	AccountBalances(ctx context.Context) ([]domain.RawBalance, error)

	// LotSizeRules returns the LOT_SIZE filter of each listed symbol the exchange knows.
	// Unknown symbols are left out of the result.
	LotSizeRules(ctx context.Context, symbols []string) (map[string]domain.LotSizeRule, error)

	// PlaceMarketOrder submits a MARKET order and returns the acknowledgement.
	PlaceMarketOrder(ctx context.Context, order domain.MarketOrder) (*domain.OrderResult, error)

	// PlaceLimitOrder submits a LIMIT GTC order and returns the acknowledgement.
	PlaceLimitOrder(ctx context.Context, order domain.LimitOrder) (*domain.OrderResult, error)
}
