package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

type fakeExchange struct {
	offset   time.Duration
	tickers  []domain.BookTicker
	balances []domain.RawBalance
	rules    map[string]domain.LotSizeRule
	result   *domain.OrderResult
	err      error

	rulesRequested []string
	marketOrders   []domain.MarketOrder
}

func (f *fakeExchange) Name() string { return "fake" }

func (f *fakeExchange) SyncTime(ctx context.Context) (time.Duration, error) {
	return f.offset, f.err
}

func (f *fakeExchange) BookTickers(ctx context.Context) ([]domain.BookTicker, error) {
	return f.tickers, f.err
}

func (f *fakeExchange) AccountBalances(ctx context.Context) ([]domain.RawBalance, error) {
	return f.balances, f.err
}

func (f *fakeExchange) LotSizeRules(ctx context.Context, symbols []string) (map[string]domain.LotSizeRule, error) {
	f.rulesRequested = symbols
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.LotSizeRule)
	for _, s := range symbols {
		if r, ok := f.rules[s]; ok {
			out[s] = r
		}
	}
	return out, nil
}

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, order domain.MarketOrder) (*domain.OrderResult, error) {
	f.marketOrders = append(f.marketOrders, order)
	return f.result, f.err
}

func (f *fakeExchange) PlaceLimitOrder(ctx context.Context, order domain.LimitOrder) (*domain.OrderResult, error) {
	return f.result, f.err
}

func TestService_RefreshQuotes(t *testing.T) {
	ex := &fakeExchange{tickers: []domain.BookTicker{
		{Symbol: "BTCUSD", BidPrice: "1", BidQty: "1", AskPrice: "2", AskQty: "1"},
		{Symbol: "BAD", BidPrice: "x", BidQty: "1", AskPrice: "2", AskQty: "1"},
	}}
	svc := NewService(ex, logger.Nop())
	fixed := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return fixed }

	snap, err := svc.RefreshQuotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 1 {
		t.Errorf("expected 1 quote, got %d", snap.Len())
	}
	if !snap.TakenAt().Equal(fixed) {
		t.Errorf("unexpected snapshot time %v", snap.TakenAt())
	}
}

func TestService_RefreshBalances_PropagatesErrors(t *testing.T) {
	transport := apperror.New(apperror.CodeTransportError)
	svc := NewService(&fakeExchange{err: transport}, logger.Nop())

	if _, err := svc.RefreshBalances(context.Background()); !errors.Is(err, transport) {
		t.Errorf("expected transport error, got %v", err)
	}

	svc = NewService(&fakeExchange{balances: []domain.RawBalance{{Asset: "USD", Free: "oops"}}}, logger.Nop())
	if _, err := svc.RefreshBalances(context.Background()); !apperror.HasCode(err, apperror.CodeInvalidBalance) {
		t.Errorf("expected INVALID_BALANCE, got %v", err)
	}
}

func TestService_LotSizeRules(t *testing.T) {
	rule := domain.LotSizeRule{
		StepSize: decimal.RequireFromString("0.0001"),
		MinQty:   decimal.RequireFromString("0.0001"),
	}
	ex := &fakeExchange{rules: map[string]domain.LotSizeRule{"BTCUSD": rule}}
	svc := NewService(ex, logger.Nop())

	if err := svc.LoadLotSizeRules(context.Background(), []string{"BTCUSD", "BTCBUSD"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.rulesRequested) != 2 {
		t.Errorf("expected both symbols requested, got %v", ex.rulesRequested)
	}

	got, err := svc.LotSizeRule("BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.StepSize.Equal(rule.StepSize) {
		t.Errorf("unexpected step %s", got.StepSize)
	}

	if _, err := svc.LotSizeRule("BTCBUSD"); !apperror.HasCode(err, apperror.CodeLotSizeNotFound) {
		t.Errorf("expected LOT_SIZE_NOT_FOUND, got %v", err)
	}
}

func TestService_PlaceMarketOrder(t *testing.T) {
	ex := &fakeExchange{result: &domain.OrderResult{Symbol: "BTCUSD", Status: domain.OrderStatusFilled}}
	svc := NewService(ex, logger.Nop())

	order := domain.MarketOrder{Symbol: "BTCUSD", Side: domain.SideBuy, Field: domain.FieldQuoteOrderQty, Amount: "25.00"}
	res, err := svc.PlaceMarketOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Filled() {
		t.Error("expected filled result")
	}
	if len(ex.marketOrders) != 1 || ex.marketOrders[0] != order {
		t.Errorf("order not forwarded: %+v", ex.marketOrders)
	}

	ex.err = apperror.New(apperror.CodeExchangeAPIError)
	if _, err := svc.PlaceMarketOrder(context.Background(), order); !apperror.HasCode(err, apperror.CodeExchangeAPIError) {
		t.Errorf("expected wrapped EXCHANGE_API_ERROR, got %v", err)
	}
}

func TestService_SnapshotSpansCarryFetchTime(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	ex := &fakeExchange{
		tickers:  []domain.BookTicker{{Symbol: "BTCUSD", BidPrice: "1", BidQty: "1", AskPrice: "2", AskQty: "1"}},
		balances: []domain.RawBalance{{Asset: "USD", Free: "10", Locked: "0"}},
	}
	svc := NewService(ex, logger.Nop())
	fixed := time.Unix(1700000000, 0).UTC()
	svc.now = func() time.Time { return fixed }

	if _, err := svc.RefreshQuotes(context.Background()); err != nil {
		t.Fatalf("RefreshQuotes() error: %v", err)
	}
	if _, err := svc.RefreshBalances(context.Background()); err != nil {
		t.Fatalf("RefreshBalances() error: %v", err)
	}

	want := fixed.Format(time.RFC3339Nano)
	spans := exporter.GetSpans()
	for _, name := range []string{"market.refresh_quotes", "market.refresh_balances"} {
		var found bool
		for _, s := range spans {
			if s.Name != name {
				continue
			}
			for _, kv := range s.Attributes {
				if kv.Key == "taken_at" && kv.Value.AsString() == want {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("span %s missing taken_at=%s", name, want)
		}
	}
}
