package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apm"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

// Service wraps an Exchange with snapshot building, a lot rule cache and tracing.
type Service struct {
	exchange Exchange
	logger   logger.LoggerInterface
	tracer   apm.Tracer
	now      func() time.Time

	mu       sync.RWMutex
	lotRules map[string]domain.LotSizeRule
}

// NewService creates a market Service over exchange.
func NewService(exchange Exchange, log logger.LoggerInterface) *Service {
	return &Service{
		exchange: exchange,
		logger:   log,
		tracer:   apm.NewTracer("market"),
		now:      time.Now,
		lotRules: make(map[string]domain.LotSizeRule),
	}
}

// ExchangeName returns the name of the underlying driver.
func (s *Service) ExchangeName() string {
	return s.exchange.Name()
}

// SyncTime aligns signed request timestamps with the exchange clock.
func (s *Service) SyncTime(ctx context.Context) (time.Duration, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "market.sync_time")
	defer span.End()

	offset, err := s.exchange.SyncTime(ctx)
	if err != nil {
		span.NoticeError(err)
		return 0, err
	}

	span.SetAttribute(attribute.Int64("offset_ms", offset.Milliseconds()))
	s.logger.Info(ctx, "exchange clock synced", "exchange", s.exchange.Name(), "offset", offset.String())
	return offset, nil
}

// RefreshQuotes fetches every book ticker into a fresh snapshot. Entries that
// fail validation are logged and left out.
func (s *Service) RefreshQuotes(ctx context.Context) (*domain.QuoteSnapshot, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "market.refresh_quotes")
	defer span.End()

	tickers, err := s.exchange.BookTickers(ctx)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	snap := domain.NewQuoteSnapshot(tickers, s.now())
	for sym, perr := range snap.Skipped() {
		s.logger.Debug(ctx, "skipping malformed quote", "symbol", sym, "error", perr)
	}

	span.SetAttributes(
		attribute.Int("quotes", snap.Len()),
		attribute.Int("skipped", len(snap.Skipped())),
		attribute.String("taken_at", snap.TakenAt().Format(time.RFC3339Nano)),
	)
	return snap, nil
}

// RefreshBalances fetches the account balances into a fresh snapshot.
func (s *Service) RefreshBalances(ctx context.Context) (*domain.BalanceSnapshot, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "market.refresh_balances")
	defer span.End()

	raw, err := s.exchange.AccountBalances(ctx)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	snap, err := domain.NewBalanceSnapshot(raw, s.now())
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}
	span.SetAttribute(attribute.String("taken_at", snap.TakenAt().Format(time.RFC3339Nano)))
	return snap, nil
}

// LoadLotSizeRules fetches and caches the LOT_SIZE rule of every symbol. Symbols
// the exchange does not list are logged and skipped.
func (s *Service) LoadLotSizeRules(ctx context.Context, symbols []string) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "market.load_lot_size_rules",
		trace.WithAttributes(attribute.Int("symbols", len(symbols))))
	defer span.End()

	rules, err := s.exchange.LotSizeRules(ctx, symbols)
	if err != nil {
		span.NoticeError(err)
		return err
	}

	s.mu.Lock()
	for sym, rule := range rules {
		s.lotRules[sym] = rule
	}
	s.mu.Unlock()

	for _, sym := range symbols {
		if _, ok := rules[sym]; !ok {
			s.logger.Debug(ctx, "symbol not listed on exchange", "symbol", sym)
		}
	}

	s.logger.Info(ctx, "lot size rules loaded", "requested", len(symbols), "found", len(rules))
	return nil
}

// LotSizeRule returns the cached rule for symbol.
func (s *Service) LotSizeRule(symbol string) (domain.LotSizeRule, error) {
	s.mu.RLock()
	rule, ok := s.lotRules[symbol]
	s.mu.RUnlock()

	if !ok {
		return domain.LotSizeRule{}, apperror.New(apperror.CodeLotSizeNotFound,
			apperror.WithContext(symbol))
	}
	return rule, nil
}

// PlaceMarketOrder submits order through the exchange.
func (s *Service) PlaceMarketOrder(ctx context.Context, order domain.MarketOrder) (*domain.OrderResult, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "market.place_market_order",
		trace.WithAttributes(
			attribute.String("symbol", order.Symbol),
			attribute.String("side", string(order.Side)),
			attribute.String(string(order.Field), order.Amount),
		))
	defer span.End()

	s.logger.Info(ctx, "placing market order", "order", order.String())

	res, err := s.exchange.PlaceMarketOrder(ctx, order)
	if err != nil {
		span.NoticeError(err)
		return nil, fmt.Errorf("place %s: %w", order, err)
	}

	span.SetAttribute(attribute.String("status", string(res.Status)))
	s.logger.Info(ctx, "market order acknowledged",
		"symbol", res.Symbol,
		"order_id", res.OrderID,
		"status", string(res.Status),
		"executed_qty", res.ExecutedQty.String(),
		"test", res.Test)
	return res, nil
}

// PlaceLimitOrder submits order through the exchange.
func (s *Service) PlaceLimitOrder(ctx context.Context, order domain.LimitOrder) (*domain.OrderResult, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "market.place_limit_order",
		trace.WithAttributes(
			attribute.String("symbol", order.Symbol),
			attribute.String("side", string(order.Side)),
			attribute.String("price", order.Price),
		))
	defer span.End()

	s.logger.Info(ctx, "placing limit order", "order", order.String())

	res, err := s.exchange.PlaceLimitOrder(ctx, order)
	if err != nil {
		span.NoticeError(err)
		return nil, fmt.Errorf("place %s: %w", order, err)
	}

	span.SetAttribute(attribute.String("status", string(res.Status)))
	return res, nil
}
