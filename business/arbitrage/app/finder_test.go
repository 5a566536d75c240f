package app

import (
	"testing"
	"time"

	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
)

func finderConfig(threshold string) FinderConfig {
	cfg := DefaultFinderConfig()
	cfg.ProfitThresholdPercent = dec(threshold)
	return cfg
}

func snapshot(tickers ...marketDomain.BookTicker) *marketDomain.QuoteSnapshot {
	return marketDomain.NewQuoteSnapshot(tickers, time.Now())
}

func TestFindBestDeal_BuysLowSellsHigh(t *testing.T) {
	f := NewDealFinder(finderConfig("0.2"))

	deal := f.FindBestDeal("BTC", []string{"USD", "USDT"}, snapshot(btcTickers()...), "USDT")
	if deal == nil {
		t.Fatal("expected a deal")
	}

	if deal.BuyPair != "BTCUSD" || deal.SellPair != "BTCUSDT" {
		t.Errorf("got buy=%s sell=%s, want buy=BTCUSD sell=BTCUSDT", deal.BuyPair, deal.SellPair)
	}
	if deal.BuyStablecoin != "USD" || deal.SellStablecoin != "USDT" {
		t.Errorf("got stablecoins %s/%s", deal.BuyStablecoin, deal.SellStablecoin)
	}
	if got := deal.SpreadPercent.StringFixed(4); got != "0.3799" {
		t.Errorf("spread = %s, want 0.3799", got)
	}
	if !deal.Threshold.Equal(dec("0.2")) {
		t.Errorf("threshold = %s, want 0.2 without the home discount", deal.Threshold)
	}
	if !deal.MaxTradeNotional.Equal(dec("100")) {
		t.Errorf("max trade = %s, want 100", deal.MaxTradeNotional)
	}
}

func TestFindBestDeal_HomeDiscount(t *testing.T) {
	tests := []struct {
		name     string
		home     string
		wantDeal bool
	}{
		{name: "buy_side_is_home", home: "USD", wantDeal: true},
		{name: "buy_side_needs_conversion", home: "USDT", wantDeal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 0.45 - 0.075 = 0.375 sits just under the 0.3799 spread.
			f := NewDealFinder(finderConfig("0.45"))
			deal := f.FindBestDeal("BTC", []string{"USD", "USDT"}, snapshot(btcTickers()...), tt.home)

			if (deal != nil) != tt.wantDeal {
				t.Fatalf("deal = %v, want deal=%v", deal, tt.wantDeal)
			}
			if deal != nil && !deal.Threshold.Equal(dec("0.375")) {
				t.Errorf("threshold = %s, want 0.375", deal.Threshold)
			}
		})
	}
}

func TestFindBestDeal_NoDeal(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		tickers   []marketDomain.BookTicker
	}{
		{
			name:      "spread_below_threshold",
			threshold: "0.5",
			tickers:   btcTickers(),
		},
		{
			name:      "single_quote",
			threshold: "0.2",
			tickers:   []marketDomain.BookTicker{ticker("BTCUSD", "50000", "50010")},
		},
		{
			name:      "one_sided_quote_ignored",
			threshold: "0.2",
			tickers: []marketDomain.BookTicker{
				ticker("BTCUSD", "50000", "50010"),
				ticker("BTCUSDT", "50200", "0"),
			},
		},
		{
			name:      "best_bid_and_ask_on_same_pair",
			threshold: "0.2",
			tickers: []marketDomain.BookTicker{
				ticker("BTCUSD", "50300", "50010"),
				ticker("BTCUSDT", "50200", "50210"),
			},
		},
		{
			name:      "book_too_thin",
			threshold: "0.2",
			tickers: []marketDomain.BookTicker{
				{Symbol: "BTCUSD", BidPrice: "50000", BidQty: "1", AskPrice: "50010", AskQty: "0.0001"},
				ticker("BTCUSDT", "50200", "50210"),
			},
		},
		{
			name:      "no_quotes",
			threshold: "0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDealFinder(finderConfig(tt.threshold))
			if deal := f.FindBestDeal("BTC", []string{"USD", "USDT"}, snapshot(tt.tickers...), "USD"); deal != nil {
				t.Errorf("expected no deal, got %s", deal)
			}
		})
	}
}

func TestFindBestDeal_CapsAtBookDepth(t *testing.T) {
	f := NewDealFinder(finderConfig("0.2"))
	quotes := snapshot(
		marketDomain.BookTicker{Symbol: "BTCUSD", BidPrice: "50000", BidQty: "1", AskPrice: "50010", AskQty: "1"},
		marketDomain.BookTicker{Symbol: "BTCUSDT", BidPrice: "50200", BidQty: "0.001", AskPrice: "50210", AskQty: "1"},
	)

	deal := f.FindBestDeal("BTC", []string{"USD", "USDT"}, quotes, "USD")
	if deal == nil {
		t.Fatal("expected a deal")
	}
	if !deal.MaxTradeNotional.Equal(dec("50.2")) {
		t.Errorf("max trade = %s, want the 50.2 resting at the bid", deal.MaxTradeNotional)
	}
}

func TestFindBestDeal_TieKeepsFirstStablecoin(t *testing.T) {
	f := NewDealFinder(finderConfig("0.2"))
	quotes := snapshot(
		ticker("ETHUSDT", "3000", "3001"),
		ticker("ETHUSD", "3000", "3001"),
		ticker("ETHBUSD", "3020", "3030"),
	)

	for i := 0; i < 5; i++ {
		deal := f.FindBestDeal("ETH", []string{"USDT", "USD", "BUSD"}, quotes, "USD")
		if deal == nil {
			t.Fatal("expected a deal")
		}
		if deal.BuyPair != "ETHUSDT" {
			t.Fatalf("run %d: buy pair = %s, want ETHUSDT", i, deal.BuyPair)
		}
		if deal.SellPair != "ETHBUSD" {
			t.Fatalf("run %d: sell pair = %s, want ETHBUSD", i, deal.SellPair)
		}
	}
}

func sameDeal(a, b *domain.Deal) bool {
	return a.Token == b.Token &&
		a.BuyPair == b.BuyPair &&
		a.SellPair == b.SellPair &&
		a.BuyStablecoin == b.BuyStablecoin &&
		a.SellStablecoin == b.SellStablecoin &&
		a.BuyAsk.Equal(b.BuyAsk) &&
		a.SellBid.Equal(b.SellBid) &&
		a.SpreadPercent.Equal(b.SpreadPercent) &&
		a.Threshold.Equal(b.Threshold) &&
		a.MaxTradeNotional.Equal(b.MaxTradeNotional)
}

func TestFindBestDeal_Deterministic(t *testing.T) {
	stablecoins := []string{"USD", "USDT", "USDC"}
	// BTCUSDT and BTCUSDC tie on the best bid.
	quotes := snapshot(append(btcTickers(), ticker("BTCUSDC", "50200", "50210"))...)
	f := NewDealFinder(finderConfig("0.2"))

	first := f.FindBestDeal("BTC", stablecoins, quotes, "USD")
	if first == nil {
		t.Fatal("expected a deal")
	}
	for i := 0; i < 50; i++ {
		got := f.FindBestDeal("BTC", stablecoins, quotes, "USD")
		if got == nil || !sameDeal(first, got) {
			t.Fatalf("run %d: got %v, want %s", i, got, first)
		}
	}

	thin := snapshot(ticker("BTCUSD", "50000", "50010"))
	for i := 0; i < 2; i++ {
		if deal := f.FindBestDeal("BTC", stablecoins, thin, "USD"); deal != nil {
			t.Fatalf("run %d: expected no deal, got %s", i, deal)
		}
	}
}
