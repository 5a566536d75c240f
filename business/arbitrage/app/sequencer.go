package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/logger"
)

// Sequencer executes the legs of a deal: optional conversion, buy, sell.
type Sequencer struct {
	orders    *orderRunner
	converter *Converter
	portfolio *Portfolio
	logger    logger.LoggerInterface
	now       func() time.Time
}

// NewSequencer creates a Sequencer.
func NewSequencer(gateway OrderGateway, converter *Converter, portfolio *Portfolio, log logger.LoggerInterface) *Sequencer {
	return &Sequencer{
		orders:    &orderRunner{gateway: gateway, portfolio: portfolio, logger: log},
		converter: converter,
		portfolio: portfolio,
		logger:    log,
		now:       time.Now,
	}
}

// ExecuteSequence runs deal and reports whether both legs filled.
func (s *Sequencer) ExecuteSequence(ctx context.Context, deal *domain.Deal, home string) (bool, error) {
	res := s.Execute(ctx, deal, home)
	return res.Success, res.Err
}

// Execute runs deal and returns every leg it placed. A failed leg stops the
// sequence; nothing already traded is unwound.
func (s *Sequencer) Execute(ctx context.Context, deal *domain.Deal, home string) TradeResult {
	res := TradeResult{Deal: deal, Home: home, StartedAt: s.now()}
	fail := func(err error) TradeResult {
		res.Err = err
		res.FinishedAt = s.now()
		return res
	}

	s.logger.Info(ctx, "executing trade sequence",
		"buy", deal.BuyPair,
		"sell", deal.SellPair,
		"spread_percent", deal.SpreadPercent.StringFixed(4),
		"home", home)

	dest := deal.BuyStablecoin
	if dest != home {
		leg, err := s.converter.convert(ctx, dest, deal.MaxTradeNotional, home)
		if leg != nil {
			res.Legs = append(res.Legs, *leg)
		}
		if err != nil {
			return fail(err)
		}
	}

	amount := decimal.Min(s.portfolio.Free(dest), deal.MaxTradeNotional)
	buy, err := s.orders.place(ctx, LegBuy, deal.BuyPair, marketDomain.SideBuy, marketDomain.FieldQuoteOrderQty, amount)
	res.Legs = append(res.Legs, buy)
	if err != nil {
		return fail(err)
	}

	sell, err := s.orders.place(ctx, LegSell, deal.SellPair, marketDomain.SideSell, marketDomain.FieldQuantity, s.portfolio.Free(deal.Token))
	res.Legs = append(res.Legs, sell)
	if err != nil {
		return fail(err)
	}

	res.Success = true
	res.FinishedAt = s.now()
	return res
}
