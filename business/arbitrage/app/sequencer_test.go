package app

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

var stablecoins = []string{"USD", "USDT", "USDC", "BUSD"}

func newTestPortfolio(t *testing.T, m *fakeMarket) *Portfolio {
	t.Helper()
	p := NewPortfolio(m, stablecoins, nil, logger.Nop())
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh portfolio: %v", err)
	}
	return p
}

func TestConverter_Convert(t *testing.T) {
	tests := []struct {
		name      string
		balances  map[string]string
		home      string
		dest      string
		wantOrder *marketDomain.MarketOrder
	}{
		{
			name:     "dest_is_home",
			balances: map[string]string{"USD": "500"},
			home:     "USD",
			dest:     "USD",
		},
		{
			name:     "dest_already_covers_amount",
			balances: map[string]string{"USD": "500", "USDT": "150"},
			home:     "USD",
			dest:     "USDT",
		},
		{
			name:      "from_usd_buys_by_quote",
			balances:  map[string]string{"USD": "500"},
			home:      "USD",
			dest:      "USDT",
			wantOrder: &marketDomain.MarketOrder{Symbol: "USDTUSD", Side: marketDomain.SideBuy, Field: marketDomain.FieldQuoteOrderQty, Amount: "100.0000"},
		},
		{
			name:      "to_usd_sells_by_quantity",
			balances:  map[string]string{"USDT": "500"},
			home:      "USDT",
			dest:      "USD",
			wantOrder: &marketDomain.MarketOrder{Symbol: "USDTUSD", Side: marketDomain.SideSell, Field: marketDomain.FieldQuantity, Amount: "100.0000"},
		},
		{
			name:      "busd_to_usdt",
			balances:  map[string]string{"BUSD": "500"},
			home:      "BUSD",
			dest:      "USDT",
			wantOrder: &marketDomain.MarketOrder{Symbol: "BUSDUSDT", Side: marketDomain.SideSell, Field: marketDomain.FieldQuantity, Amount: "100.0000"},
		},
		{
			name:      "usdt_to_busd",
			balances:  map[string]string{"USDT": "500"},
			home:      "USDT",
			dest:      "BUSD",
			wantOrder: &marketDomain.MarketOrder{Symbol: "BUSDUSDT", Side: marketDomain.SideBuy, Field: marketDomain.FieldQuoteOrderQty, Amount: "100.0000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMarket()
			m.balances = tt.balances
			c := NewConverter(m, newTestPortfolio(t, m), nil, logger.Nop())

			ok, err := c.Convert(context.Background(), tt.dest, dec("100"), tt.home)
			if err != nil || !ok {
				t.Fatalf("Convert() = %v, %v", ok, err)
			}

			if tt.wantOrder == nil {
				if len(m.orders) != 0 {
					t.Errorf("expected no order, got %v", m.orders)
				}
				return
			}
			if len(m.orders) != 1 {
				t.Fatalf("expected 1 order, got %d", len(m.orders))
			}
			if m.orders[0] != *tt.wantOrder {
				t.Errorf("order = %s, want %s", m.orders[0], tt.wantOrder)
			}
		})
	}
}

func TestConverter_NoPath(t *testing.T) {
	m := newFakeMarket()
	m.balances = map[string]string{"USDT": "500"}
	c := NewConverter(m, newTestPortfolio(t, m), nil, logger.Nop())

	ok, err := c.Convert(context.Background(), "USDC", dec("100"), "USDT")
	if ok {
		t.Error("expected conversion to fail")
	}
	if !apperror.HasCode(err, apperror.CodeNoConversionPath) {
		t.Errorf("expected NO_CONVERSION_PATH, got %v", err)
	}
	if len(m.orders) != 0 {
		t.Errorf("expected no order, got %v", m.orders)
	}
}

func TestConverter_NotFilled(t *testing.T) {
	m := newFakeMarket()
	m.balances = map[string]string{"USD": "500"}
	m.onOrder = func(order marketDomain.MarketOrder) (*marketDomain.OrderResult, error) {
		return &marketDomain.OrderResult{Symbol: order.Symbol, Status: marketDomain.OrderStatusExpired}, nil
	}
	c := NewConverter(m, newTestPortfolio(t, m), nil, logger.Nop())

	ok, err := c.Convert(context.Background(), "USDT", dec("100"), "USD")
	if ok {
		t.Error("expected conversion to fail")
	}
	if !apperror.HasCode(err, apperror.CodeOrderNotFilled) {
		t.Errorf("expected ORDER_NOT_FILLED, got %v", err)
	}
}

func btcDeal(buyCoin, sellCoin string) *domain.Deal {
	return &domain.Deal{
		Token:            "BTC",
		BuyPair:          "BTC" + buyCoin,
		SellPair:         "BTC" + sellCoin,
		BuyStablecoin:    buyCoin,
		SellStablecoin:   sellCoin,
		BuyAsk:           dec("50010"),
		SellBid:          dec("50200"),
		SpreadPercent:    dec("0.3799"),
		Threshold:        dec("0.2"),
		MaxTradeNotional: dec("100"),
	}
}

// fillingMarket simulates fills: a buy of BTC credits 0.0019994 BTC, a sell
// clears the BTC balance, a USDTUSD sell credits USD one for one.
func fillingMarket(balances map[string]string) *fakeMarket {
	m := newFakeMarket()
	m.balances = balances
	m.onOrder = func(order marketDomain.MarketOrder) (*marketDomain.OrderResult, error) {
		switch {
		case order.Symbol == "USDTUSD" && order.Side == marketDomain.SideSell:
			m.balances["USDT"] = "400"
			m.balances["USD"] = order.Amount
		case order.Side == marketDomain.SideBuy:
			m.balances["BTC"] = "0.0019994"
		case order.Side == marketDomain.SideSell:
			m.balances["BTC"] = "0.0000994"
		}
		return filled(order), nil
	}
	return m
}

func newTestSequencer(t *testing.T, m *fakeMarket) *Sequencer {
	t.Helper()
	p := newTestPortfolio(t, m)
	return NewSequencer(m, NewConverter(m, p, nil, logger.Nop()), p, logger.Nop())
}

func TestSequencer_BuyThenSell(t *testing.T) {
	m := fillingMarket(map[string]string{"USD": "500"})
	s := newTestSequencer(t, m)

	res := s.Execute(context.Background(), btcDeal("USD", "USDT"), "USD")
	if !res.Success || res.Err != nil {
		t.Fatalf("expected success, got err=%v", res.Err)
	}

	want := []marketDomain.MarketOrder{
		{Symbol: "BTCUSD", Side: marketDomain.SideBuy, Field: marketDomain.FieldQuoteOrderQty, Amount: "100.0000"},
		{Symbol: "BTCUSDT", Side: marketDomain.SideSell, Field: marketDomain.FieldQuantity, Amount: "0.0019"},
	}
	if len(m.orders) != len(want) {
		t.Fatalf("expected %d orders, got %v", len(want), m.orders)
	}
	for i := range want {
		if m.orders[i] != want[i] {
			t.Errorf("order %d = %s, want %s", i, m.orders[i], want[i])
		}
	}

	if len(res.Legs) != 2 || res.Legs[0].Kind != LegBuy || res.Legs[1].Kind != LegSell {
		t.Errorf("unexpected legs: %+v", res.Legs)
	}
}

func TestSequencer_BuySizedByFreeBalance(t *testing.T) {
	m := fillingMarket(map[string]string{"USD": "42.5"})
	s := newTestSequencer(t, m)

	if ok, err := s.ExecuteSequence(context.Background(), btcDeal("USD", "USDT"), "USD"); !ok || err != nil {
		t.Fatalf("ExecuteSequence() = %v, %v", ok, err)
	}
	if got := m.orders[0].Amount; got != "42.5000" {
		t.Errorf("buy amount = %s, want 42.5000", got)
	}
}

func TestSequencer_ConvertsFirst(t *testing.T) {
	m := fillingMarket(map[string]string{"USDT": "500"})
	s := newTestSequencer(t, m)

	res := s.Execute(context.Background(), btcDeal("USD", "USDT"), "USDT")
	if !res.Success {
		t.Fatalf("expected success, got err=%v", res.Err)
	}

	kinds := make([]LegKind, 0, len(res.Legs))
	for _, l := range res.Legs {
		kinds = append(kinds, l.Kind)
	}
	if len(kinds) != 3 || kinds[0] != LegConvert || kinds[1] != LegBuy || kinds[2] != LegSell {
		t.Fatalf("legs = %v, want [convert buy sell]", kinds)
	}
	if m.orders[0].Symbol != "USDTUSD" || m.orders[0].Side != marketDomain.SideSell {
		t.Errorf("conversion order = %s", m.orders[0])
	}
	if m.orders[1].Amount != "100.0000" {
		t.Errorf("buy amount = %s, want the converted 100.0000", m.orders[1].Amount)
	}
}

func TestSequencer_StopsWhenBuyNotFilled(t *testing.T) {
	tests := []struct {
		name     string
		result   *marketDomain.OrderResult
		wantPart bool
	}{
		{
			name:   "new",
			result: &marketDomain.OrderResult{Symbol: "BTCUSD", Status: marketDomain.OrderStatusNew},
		},
		{
			name:     "partially_filled",
			result:   &marketDomain.OrderResult{Symbol: "BTCUSD", Status: marketDomain.OrderStatusPartiallyFilled},
			wantPart: true,
		},
		{
			name:   "dry_run_ack",
			result: &marketDomain.OrderResult{Symbol: "BTCUSD", Test: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMarket()
			m.balances = map[string]string{"USD": "500"}
			m.onOrder = func(marketDomain.MarketOrder) (*marketDomain.OrderResult, error) {
				return tt.result, nil
			}
			s := newTestSequencer(t, m)

			res := s.Execute(context.Background(), btcDeal("USD", "USDT"), "USD")
			if res.Success {
				t.Fatal("expected failure")
			}
			if !apperror.HasCode(res.Err, apperror.CodeOrderNotFilled) {
				t.Errorf("expected ORDER_NOT_FILLED, got %v", res.Err)
			}
			if len(m.orders) != 1 {
				t.Errorf("sell leg must not be placed, got orders %v", m.orders)
			}
			if res.PartialFill() != tt.wantPart {
				t.Errorf("PartialFill() = %v, want %v", res.PartialFill(), tt.wantPart)
			}
		})
	}
}

func TestSequencer_StopsWhenConversionFails(t *testing.T) {
	m := newFakeMarket()
	m.balances = map[string]string{"USDT": "500"}

	s := newTestSequencer(t, m)
	ok, err := s.ExecuteSequence(context.Background(), btcDeal("USDC", "USD"), "USDT")
	if ok {
		t.Fatal("expected failure")
	}
	if !apperror.HasCode(err, apperror.CodeNoConversionPath) {
		t.Errorf("expected NO_CONVERSION_PATH, got %v", err)
	}
	if len(m.orders) != 0 {
		t.Errorf("expected no orders, got %v", m.orders)
	}
}

func TestSequencer_OrderError(t *testing.T) {
	transport := apperror.New(apperror.CodeTransportError, apperror.WithContext("connection reset"))
	m := newFakeMarket()
	m.balances = map[string]string{"USD": "500"}
	m.onOrder = func(marketDomain.MarketOrder) (*marketDomain.OrderResult, error) {
		return nil, transport
	}
	s := newTestSequencer(t, m)

	res := s.Execute(context.Background(), btcDeal("USD", "USDT"), "USD")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, transport) {
		t.Errorf("expected the transport error, got %v", res.Err)
	}
	if len(res.Legs) != 1 || res.Legs[0].Result != nil {
		t.Errorf("unexpected legs: %+v", res.Legs)
	}
}
