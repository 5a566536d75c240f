package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fd1az/stablearb/internal/ratelimit"
)

func TestRequest_QueryOrderingAndResult(t *testing.T) {
	var gotQuery, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-MBX-APIKEY")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"serverTime":1700000000000}`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(server.URL),
		WithHeaders(map[string]string{"X-MBX-APIKEY": "key"}),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var result struct {
		ServerTime int64 `json:"serverTime"`
	}
	resp, err := client.NewRequest().
		SetQueryParam("symbol", "BTCUSD").
		SetQueryParam("limit", "5").
		SetRawQuery("timestamp=1&signature=abc").
		SetResult(&result).
		Get(context.Background(), "/api/v3/time")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if want := "limit=5&symbol=BTCUSD&timestamp=1&signature=abc"; gotQuery != want {
		t.Errorf("expected query %q, got %q", want, gotQuery)
	}
	if gotHeader != "key" {
		t.Errorf("expected default header, got %q", gotHeader)
	}
	if result.ServerTime != 1700000000000 {
		t.Errorf("expected decoded result, got %d", result.ServerTime)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success status, got %d", resp.StatusCode)
	}
}

func TestRequest_StringBodyAndErrorHandler(t *testing.T) {
	var gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2010,"msg":"insufficient balance"}`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	errRejected := errors.New("rejected")
	resp, err := client.NewRequestWithOptions(
		WithLabels(NewLabel("endpoint", "order")),
		WithResponseErrorHandler(func(status int, body []byte) error {
			if status >= 400 {
				return errRejected
			}
			return nil
		}),
	).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody("symbol=BTCUSD&side=BUY").
		Post(context.Background(), "/api/v3/order")

	if !errors.Is(err, errRejected) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if resp == nil || !resp.IsError() {
		t.Fatal("expected error response to be returned alongside handler error")
	}
	if gotBody != "symbol=BTCUSD&side=BUY" {
		t.Errorf("unexpected body %q", gotBody)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
}

func TestRequest_RateLimiterHonoursContext(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(
		WithBaseURL(server.URL),
		WithRateLimiter(ratelimit.NewWithBurst(0.001, 1)),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.NewRequest().Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.NewRequest().Get(ctx, "/ping"); err == nil {
		t.Fatal("expected limiter error on cancelled context")
	}
	if hits != 1 {
		t.Errorf("expected exactly one request to reach the server, got %d", hits)
	}
}

func TestClient_RecordsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	reader := sdkmetric.NewManualReader()
	client, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(server.URL),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
		WithBodyTracing(true, true),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	ctx := context.Background()
	if _, err := client.NewRequest().Get(ctx, "/ok"); err != nil {
		t.Fatalf("GET /ok: %v", err)
	}
	client.NewRequest().Get(ctx, "/fail")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metricRequestCounter {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("%s = %d, want 2", metricRequestCounter, total)
	}
}
