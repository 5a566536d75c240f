package gobinance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/logger"
)

func newTestExchange(t *testing.T, dryRun bool, mux *http.ServeMux) *Exchange {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ex, err := New(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s", DryRun: dryRun}, logger.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return ex
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Config{}, logger.Nop()); !apperror.HasCode(err, apperror.CodeCredentialsMissing) {
		t.Errorf("expected CREDENTIALS_MISSING, got %v", err)
	}
}

func TestNew_InstrumentsTransport(t *testing.T) {
	ex, err := New(Config{APIKey: "k", APISecret: "s"}, logger.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, ok := ex.client.HTTPClient.Transport.(*otelhttp.Transport); !ok {
		t.Errorf("transport = %T, want *otelhttp.Transport", ex.client.HTTPClient.Transport)
	}
	if ex.client.HTTPClient.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", ex.client.HTTPClient.Timeout)
	}
}

func TestExchange_BookTickersAndLotSize(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/bookTicker", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"ETHUSD","bidPrice":"2000.10","bidQty":"1.5","askPrice":"2000.20","askQty":"2"}]`)
	})
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbols":[
			{"symbol":"ETHUSD","filters":[{"filterType":"LOT_SIZE","minQty":"0.0001","maxQty":"9000","stepSize":"0.0001"}]},
			{"symbol":"ETHUSDT","filters":[{"filterType":"LOT_SIZE","minQty":"0.001","maxQty":"9000","stepSize":"0.001"}]}
		]}`)
	})
	ex := newTestExchange(t, false, mux)

	tickers, err := ex.BookTickers(context.Background())
	if err != nil {
		t.Fatalf("BookTickers() error: %v", err)
	}
	want := domain.BookTicker{Symbol: "ETHUSD", BidPrice: "2000.10", BidQty: "1.5", AskPrice: "2000.20", AskQty: "2"}
	if len(tickers) != 1 || tickers[0] != want {
		t.Errorf("unexpected tickers %+v", tickers)
	}

	rules, err := ex.LotSizeRules(context.Background(), []string{"ETHUSD"})
	if err != nil {
		t.Fatalf("LotSizeRules() error: %v", err)
	}
	if len(rules) != 1 || rules["ETHUSD"].StepSize.String() != "0.0001" {
		t.Errorf("unexpected rules %+v", rules)
	}
}

func TestExchange_DryRunOrder(t *testing.T) {
	var gotPath string
	var gotQuote string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/order/test", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotQuote = r.Form.Get("quoteOrderQty")
		fmt.Fprint(w, `{}`)
	})
	ex := newTestExchange(t, true, mux)

	res, err := ex.PlaceMarketOrder(context.Background(), domain.MarketOrder{
		Symbol: "ETHUSD", Side: domain.SideBuy, Field: domain.FieldQuoteOrderQty, Amount: "50.00",
	})
	if err != nil {
		t.Fatalf("PlaceMarketOrder() error: %v", err)
	}
	if gotPath != "/api/v3/order/test" || gotQuote != "50.00" {
		t.Errorf("unexpected request path=%s quoteOrderQty=%s", gotPath, gotQuote)
	}
	if res.Filled() || !res.Test {
		t.Errorf("dry run result must be an unfilled test ack: %+v", res)
	}
}

func TestExchange_APIErrorClassification(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/bookTicker", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1100,"msg":"Illegal characters found in parameter"}`)
	})
	ex := newTestExchange(t, false, mux)

	_, err := ex.BookTickers(context.Background())
	if !apperror.HasCode(err, apperror.CodeExchangeAPIError) {
		t.Errorf("expected EXCHANGE_API_ERROR, got %v", err)
	}
}
