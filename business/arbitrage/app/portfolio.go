package app

import (
	"context"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/logger"
)

// BalanceSource fetches account balances.
type BalanceSource interface {
	RefreshBalances(ctx context.Context) (*marketDomain.BalanceSnapshot, error)
}

// Portfolio holds the latest balance snapshot and the home stablecoin derived
// from it. It is owned by the trading goroutine and is not safe for concurrent use.
type Portfolio struct {
	source      BalanceSource
	stablecoins []string
	reporter    Reporter
	logger      logger.LoggerInterface

	balances *marketDomain.BalanceSnapshot
	home     string
}

// NewPortfolio creates an empty Portfolio. Call Refresh before reading it.
func NewPortfolio(source BalanceSource, stablecoins []string, reporter Reporter, log logger.LoggerInterface) *Portfolio {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Portfolio{
		source:      source,
		stablecoins: stablecoins,
		reporter:    reporter,
		logger:      log,
	}
}

// Refresh replaces the balance snapshot and recomputes the home stablecoin.
// On failure the previous state is kept.
func (p *Portfolio) Refresh(ctx context.Context) error {
	snap, err := p.source.RefreshBalances(ctx)
	if err != nil {
		return err
	}

	home := marketDomain.SelectHome(snap, p.stablecoins)
	if home != p.home {
		p.logger.Info(ctx, "home stablecoin selected",
			"previous", p.home,
			"home", home,
			"free", snap.Free(home).String())
	}

	p.balances = snap
	p.home = home
	p.reporter.PortfolioUpdated(home, snap)
	return nil
}

// Home returns the stablecoin with the largest free balance.
func (p *Portfolio) Home() string {
	return p.home
}

// Free returns the free balance of asset in the latest snapshot.
func (p *Portfolio) Free(asset string) decimal.Decimal {
	return p.balances.Free(asset)
}

// Balances returns the latest snapshot, nil before the first refresh.
func (p *Portfolio) Balances() *marketDomain.BalanceSnapshot {
	return p.balances
}
