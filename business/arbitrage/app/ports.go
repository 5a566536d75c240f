// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
)

// MarketGateway is the slice of the market service the trader depends on.
type MarketGateway interface {
	SyncTime(ctx context.Context) (time.Duration, error)
	RefreshQuotes(ctx context.Context) (*marketDomain.QuoteSnapshot, error)
	RefreshBalances(ctx context.Context) (*marketDomain.BalanceSnapshot, error)
	LoadLotSizeRules(ctx context.Context, symbols []string) error
	LotSizeRule(symbol string) (marketDomain.LotSizeRule, error)
	PlaceMarketOrder(ctx context.Context, order marketDomain.MarketOrder) (*marketDomain.OrderResult, error)
}

// Reporter receives trading events for display or logging.
type Reporter interface {
	// DealFound is called for every deal the finder returns, before execution.
	DealFound(deal *domain.Deal)

	// TradeExecuted is called when every leg of a sequence filled.
	TradeExecuted(result TradeResult)

	// TradeFailed is called when a sequence aborted. The failing leg, if any,
	// is the last entry of result.Legs.
	TradeFailed(result TradeResult)

	// PortfolioUpdated is called after every balance refresh.
	PortfolioUpdated(home string, balances *marketDomain.BalanceSnapshot)

	// CycleCompleted is called once per cycle, successful or not.
	CycleCompleted(summary CycleSummary)
}

// LegKind names a step of a trade sequence.
type LegKind string

const (
	LegConvert LegKind = "convert"
	LegBuy     LegKind = "buy"
	LegSell    LegKind = "sell"
)

// LegResult is one order of a sequence.
type LegResult struct {
	Kind   LegKind
	Order  marketDomain.MarketOrder
	Result *marketDomain.OrderResult
	Err    error
}

// Status returns the exchange status of the leg, empty when no ack was received.
func (l LegResult) Status() marketDomain.OrderStatus {
	if l.Result == nil {
		return ""
	}
	return l.Result.Status
}

// TradeResult is the outcome of one trade sequence.
type TradeResult struct {
	Deal       *domain.Deal
	Home       string
	Legs       []LegResult
	Success    bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// PartialFill reports whether the sequence stopped on a partially filled leg.
func (r TradeResult) PartialFill() bool {
	if len(r.Legs) == 0 {
		return false
	}
	return r.Legs[len(r.Legs)-1].Status() == marketDomain.OrderStatusPartiallyFilled
}

// CycleSummary describes one pass over the base tokens.
type CycleSummary struct {
	Number         uint64
	Home           string
	TokensScanned  int
	DealsFound     int
	TradesExecuted int
	TradesFailed   int
	StartedAt      time.Time
	Duration       time.Duration
	Err            error
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) DealFound(*domain.Deal)                                  {}
func (NopReporter) TradeExecuted(TradeResult)                               {}
func (NopReporter) TradeFailed(TradeResult)                                 {}
func (NopReporter) PortfolioUpdated(string, *marketDomain.BalanceSnapshot) {}
func (NopReporter) CycleCompleted(CycleSummary)                             {}
