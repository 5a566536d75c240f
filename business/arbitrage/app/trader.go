package app

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apm"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

// TraderConfig holds the trading loop settings.
type TraderConfig struct {
	Stablecoins  []string
	BaseTokens   []string
	PollInterval time.Duration
	// HaltOnError stops Run after the first failed cycle.
	HaltOnError bool
	Finder      FinderConfig
}

// Trader owns the quote snapshot, the portfolio and the home preference, and
// drives find-and-execute cycles over the base tokens. All state is mutated by
// the goroutine calling Initialize, RunOneCycle or Run.
type Trader struct {
	cfg       TraderConfig
	market    MarketGateway
	finder    *DealFinder
	portfolio *Portfolio
	sequencer *Sequencer
	reporter  Reporter
	metrics   *Metrics
	logger    logger.LoggerInterface
	tracer    apm.Tracer
	now       func() time.Time

	quotes      *marketDomain.QuoteSnapshot
	initialized bool
	cycles      uint64

	lastSuccess atomic.Int64
}

// NewTrader wires a Trader over market. reporter and metrics may be nil.
func NewTrader(cfg TraderConfig, market MarketGateway, reporter Reporter, metrics *Metrics, log logger.LoggerInterface) *Trader {
	if reporter == nil {
		reporter = NopReporter{}
	}

	portfolio := NewPortfolio(market, cfg.Stablecoins, reporter, log)
	converter := NewConverter(market, portfolio, metrics, log)

	return &Trader{
		cfg:       cfg,
		market:    market,
		finder:    NewDealFinder(cfg.Finder),
		portfolio: portfolio,
		sequencer: NewSequencer(market, converter, portfolio, log),
		reporter:  reporter,
		metrics:   metrics,
		logger:    log,
		tracer:    apm.NewTracer("arbitrage"),
		now:       time.Now,
	}
}

// Initialize syncs the clock, loads lot size rules for every tradable pair and
// takes the first quote and balance snapshots.
func (t *Trader) Initialize(ctx context.Context) error {
	ctx, span := t.tracer.StartSpanFromContext(ctx, "arbitrage.initialize")
	defer span.End()

	if _, err := t.market.SyncTime(ctx); err != nil {
		span.NoticeError(err)
		return fmt.Errorf("sync time: %w", err)
	}

	symbols := t.tradableSymbols()
	if err := t.market.LoadLotSizeRules(ctx, symbols); err != nil {
		span.NoticeError(err)
		return fmt.Errorf("load lot size rules: %w", err)
	}

	quotes, err := t.market.RefreshQuotes(ctx)
	if err != nil {
		span.NoticeError(err)
		return fmt.Errorf("refresh quotes: %w", err)
	}
	t.quotes = quotes
	if missing := unquotedSymbols(symbols, quotes.Symbols()); len(missing) > 0 {
		t.logger.Warn(ctx, "tradable symbols without quotes", "symbols", missing)
	}

	if err := t.portfolio.Refresh(ctx); err != nil {
		span.NoticeError(err)
		return fmt.Errorf("refresh balances: %w", err)
	}

	t.initialized = true
	t.logger.Info(ctx, "trader initialized",
		"symbols", len(symbols),
		"quotes", quotes.Len(),
		"home", t.portfolio.Home())
	return nil
}

func (t *Trader) tradableSymbols() []string {
	symbols := make([]string, 0, len(t.cfg.BaseTokens)*len(t.cfg.Stablecoins))
	for _, token := range t.cfg.BaseTokens {
		for _, coin := range t.cfg.Stablecoins {
			symbols = append(symbols, marketDomain.Symbol(token, coin))
		}
	}
	return append(symbols, domain.ConversionSymbols(t.cfg.Stablecoins)...)
}

// unquotedSymbols returns the entries of want absent from the sorted quoted list.
func unquotedSymbols(want, quoted []string) []string {
	var missing []string
	for _, sym := range want {
		i := sort.SearchStrings(quoted, sym)
		if i == len(quoted) || quoted[i] != sym {
			missing = append(missing, sym)
		}
	}
	return missing
}

// RunOneCycle refreshes market state and evaluates every token in order,
// executing a deal as soon as one is found. Sequence failures are reported and
// the cycle moves on; exchange transport failures end the cycle with an error.
func (t *Trader) RunOneCycle(ctx context.Context, baseTokens []string) (CycleSummary, error) {
	t.cycles++
	summary := CycleSummary{Number: t.cycles, StartedAt: t.now()}

	ctx, span := t.tracer.StartSpanFromContext(ctx, "arbitrage.cycle")
	defer span.End()
	span.SetAttribute(attribute.Int64("cycle", int64(summary.Number)))

	err := t.runCycle(ctx, baseTokens, &summary)

	summary.Home = t.portfolio.Home()
	summary.Duration = t.now().Sub(summary.StartedAt)
	summary.Err = err

	if err != nil {
		span.NoticeError(err)
	} else {
		t.lastSuccess.Store(t.now().UnixNano())
	}
	t.metrics.RecordCycle(ctx, summary.Duration, err)
	t.reporter.CycleCompleted(summary)

	return summary, err
}

func (t *Trader) runCycle(ctx context.Context, baseTokens []string, summary *CycleSummary) error {
	if !t.initialized {
		return apperror.New(apperror.CodeNotInitialized, apperror.WithContext("call Initialize first"))
	}

	if _, err := t.market.SyncTime(ctx); err != nil {
		return err
	}

	quotes, err := t.market.RefreshQuotes(ctx)
	if err != nil {
		return err
	}
	t.quotes = quotes

	if err := t.portfolio.Refresh(ctx); err != nil {
		return err
	}

	for _, token := range baseTokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.TokensScanned++

		home := t.portfolio.Home()
		deal := t.finder.FindBestDeal(token, t.cfg.Stablecoins, t.quotes, home)
		if deal == nil {
			continue
		}

		summary.DealsFound++
		spread, _ := deal.SpreadPercent.Float64()
		t.metrics.RecordDeal(ctx, token, spread)
		t.logger.Info(ctx, "deal found",
			"token", token,
			"buy", deal.BuyPair,
			"buy_ask", deal.BuyAsk.String(),
			"sell", deal.SellPair,
			"sell_bid", deal.SellBid.String(),
			"spread_percent", deal.SpreadPercent.StringFixed(4),
			"threshold_percent", deal.Threshold.String(),
			"max_trade", deal.MaxTradeNotional.StringFixed(2))
		t.reporter.DealFound(deal)

		res := t.sequencer.Execute(ctx, deal, home)
		t.metrics.RecordTrade(ctx, token, res.Success)
		if res.Success {
			summary.TradesExecuted++
			t.logger.Info(ctx, "trade executed", "token", token, "buy", deal.BuyPair, "sell", deal.SellPair)
			t.reporter.TradeExecuted(res)
			continue
		}

		summary.TradesFailed++
		t.logger.Warn(ctx, "trade failed",
			"token", token,
			"legs", len(res.Legs),
			"partial_fill", res.PartialFill(),
			"error", res.Err)
		t.reporter.TradeFailed(res)

		if isCycleFatal(res.Err) {
			return res.Err
		}
	}

	return nil
}

// isCycleFatal reports errors that make the rest of the cycle pointless: the
// exchange is unreachable or the account snapshot cannot be trusted.
func isCycleFatal(err error) bool {
	return apperror.Transient(err) || apperror.HasCode(err, apperror.CodeInvalidBalance)
}

// Run initializes the trader if needed, then runs cycles every PollInterval
// until ctx is cancelled. A failed cycle is logged and the loop continues
// unless HaltOnError is set.
func (t *Trader) Run(ctx context.Context) error {
	if !t.initialized {
		if err := t.Initialize(ctx); err != nil {
			return err
		}
	}

	t.logger.Info(ctx, "starting arbitrage trader",
		"tokens", t.cfg.BaseTokens,
		"stablecoins", t.cfg.Stablecoins,
		"poll_interval", t.cfg.PollInterval.String())

	for {
		if _, err := t.RunOneCycle(ctx, t.cfg.BaseTokens); err != nil && ctx.Err() == nil {
			t.logger.Error(ctx, "cycle failed", append([]any{"cycle", t.cycles}, apperror.LogArgs(err)...)...)
			if t.cfg.HaltOnError {
				return err
			}
		}

		select {
		case <-ctx.Done():
			t.logger.Info(ctx, "arbitrage trader stopping", "reason", ctx.Err(), "cycles", t.cycles)
			return nil
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

// LastSuccess returns when the last cycle completed without error. It is safe
// to call from any goroutine.
func (t *Trader) LastSuccess() time.Time {
	ns := t.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
