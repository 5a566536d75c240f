package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
)

// fakeMarket is an in-memory MarketGateway. Orders go through onOrder, which
// may mutate balances to simulate fills.
type fakeMarket struct {
	tickers  []marketDomain.BookTicker
	balances map[string]string
	rules    map[string]marketDomain.LotSizeRule

	syncErr    error
	quotesErr  error
	balanceErr error
	onOrder    func(order marketDomain.MarketOrder) (*marketDomain.OrderResult, error)

	rulesRequested []string
	orders         []marketDomain.MarketOrder
	quoteRefreshes int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		balances: make(map[string]string),
		rules:    defaultRules(),
	}
}

func defaultRules() map[string]marketDomain.LotSizeRule {
	cents := marketDomain.LotSizeRule{StepSize: dec("0.01"), MinQty: dec("0.01")}
	return map[string]marketDomain.LotSizeRule{
		"BTCUSD":   {StepSize: dec("0.0001"), MinQty: dec("0.0001")},
		"BTCUSDT":  {StepSize: dec("0.0001"), MinQty: dec("0.0001")},
		"ETHUSD":   {StepSize: dec("0.001"), MinQty: dec("0.001")},
		"ETHUSDT":  {StepSize: dec("0.001"), MinQty: dec("0.001")},
		"USDTUSD":  cents,
		"USDCUSD":  cents,
		"BUSDUSD":  cents,
		"BUSDUSDT": cents,
	}
}

func (m *fakeMarket) SyncTime(ctx context.Context) (time.Duration, error) {
	return 0, m.syncErr
}

func (m *fakeMarket) RefreshQuotes(ctx context.Context) (*marketDomain.QuoteSnapshot, error) {
	m.quoteRefreshes++
	if m.quotesErr != nil {
		return nil, m.quotesErr
	}
	return marketDomain.NewQuoteSnapshot(m.tickers, time.Now()), nil
}

func (m *fakeMarket) RefreshBalances(ctx context.Context) (*marketDomain.BalanceSnapshot, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	raw := make([]marketDomain.RawBalance, 0, len(m.balances))
	for asset, free := range m.balances {
		raw = append(raw, marketDomain.RawBalance{Asset: asset, Free: free, Locked: "0"})
	}
	return marketDomain.NewBalanceSnapshot(raw, time.Now())
}

func (m *fakeMarket) LoadLotSizeRules(ctx context.Context, symbols []string) error {
	m.rulesRequested = symbols
	return nil
}

func (m *fakeMarket) LotSizeRule(symbol string) (marketDomain.LotSizeRule, error) {
	r, ok := m.rules[symbol]
	if !ok {
		return marketDomain.LotSizeRule{}, apperror.New(apperror.CodeLotSizeNotFound, apperror.WithContext(symbol))
	}
	return r, nil
}

func (m *fakeMarket) PlaceMarketOrder(ctx context.Context, order marketDomain.MarketOrder) (*marketDomain.OrderResult, error) {
	m.orders = append(m.orders, order)
	if m.onOrder == nil {
		return filled(order), nil
	}
	return m.onOrder(order)
}

func filled(order marketDomain.MarketOrder) *marketDomain.OrderResult {
	return &marketDomain.OrderResult{Symbol: order.Symbol, Status: marketDomain.OrderStatusFilled}
}

// recordingReporter keeps every event it receives.
type recordingReporter struct {
	mu       sync.Mutex
	deals    []*domain.Deal
	executed []TradeResult
	failed   []TradeResult
	homes    []string
	cycles   []CycleSummary

	onCycle func(CycleSummary)
}

func (r *recordingReporter) DealFound(deal *domain.Deal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deals = append(r.deals, deal)
}

func (r *recordingReporter) TradeExecuted(result TradeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed = append(r.executed, result)
}

func (r *recordingReporter) TradeFailed(result TradeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, result)
}

func (r *recordingReporter) PortfolioUpdated(home string, balances *marketDomain.BalanceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.homes = append(r.homes, home)
}

func (r *recordingReporter) CycleCompleted(summary CycleSummary) {
	r.mu.Lock()
	r.cycles = append(r.cycles, summary)
	fn := r.onCycle
	r.mu.Unlock()
	if fn != nil {
		fn(summary)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ticker(symbol, bid, ask string) marketDomain.BookTicker {
	return marketDomain.BookTicker{Symbol: symbol, BidPrice: bid, BidQty: "1", AskPrice: ask, AskQty: "1"}
}

// btcTickers is a BTCUSD/BTCUSDT book with a 0.3799% spread from USD to USDT.
func btcTickers() []marketDomain.BookTicker {
	return []marketDomain.BookTicker{
		ticker("BTCUSD", "50000", "50010"),
		ticker("BTCUSDT", "50200", "50210"),
	}
}
