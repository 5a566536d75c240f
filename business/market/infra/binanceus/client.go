// Package binanceus implements the market Exchange port over the Binance.US REST API.
package binanceus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/stablearb/business/market/app"
	"github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/circuitbreaker"
	"github.com/fd1az/stablearb/internal/httpclient"
	"github.com/fd1az/stablearb/internal/logger"
	"github.com/fd1az/stablearb/internal/ratelimit"
)

var _ app.Exchange = (*Client)(nil)

const (
	providerName = "binanceus"

	// BaseURL is the production REST endpoint.
	BaseURL = "https://api.binance.us"
)

// Config holds the REST client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	RecvWindow        time.Duration
	RequestTimeout    time.Duration
	RequestsPerMinute int
	// DryRun sends orders to the validation-only endpoint.
	DryRun bool
	// TraceBodies attaches request and response bodies to HTTP spans.
	TraceBodies bool
}

// Client is a Binance.US REST client.
type Client struct {
	cfg     Config
	http    httpclient.Client
	signer  *Signer
	breaker *circuitbreaker.Breaker[*httpclient.Response]
	logger  logger.LoggerInterface

	offsetMs atomic.Int64
	now      func() time.Time
	newID    func() string
}

// NewClient creates a REST client. Extra options are passed to the underlying
// instrumented HTTP client.
func NewClient(cfg Config, log logger.LoggerInterface, opts ...httpclient.ClientOption) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, apperror.New(apperror.CodeCredentialsMissing,
			apperror.WithContext("binance.us api key and secret are required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	clientOpts := []httpclient.ClientOption{
		httpclient.WithProviderName(providerName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithRateLimiter(ratelimit.New(cfg.RequestsPerMinute)),
	}
	if cfg.TraceBodies {
		clientOpts = append(clientOpts, httpclient.WithBodyTracing(true, true))
	}
	hc, err := httpclient.NewInstrumentedClient(append(clientOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		http:   hc,
		signer: NewSigner(cfg.APIKey, cfg.APISecret),
		logger: log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}

	cbCfg := circuitbreaker.DefaultConfig(providerName)
	cbCfg.IsSuccessful = isHealthyError
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.breaker = circuitbreaker.New[*httpclient.Response](cbCfg)

	return c, nil
}

// Name identifies the driver.
func (c *Client) Name() string {
	return providerName
}

// BreakerState returns the state of the request circuit breaker.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Offset returns the current server clock offset.
func (c *Client) Offset() time.Duration {
	return time.Duration(c.offsetMs.Load()) * time.Millisecond
}

// SyncTime measures the server clock against the midpoint of the round trip.
func (c *Client) SyncTime(ctx context.Context) (time.Duration, error) {
	var resp serverTimeResponse

	start := c.now()
	if err := c.send(ctx, http.MethodGet, pathServerTime, nil, false, &resp); err != nil {
		return 0, apperror.New(apperror.CodeClockSyncFailed, apperror.WithCause(err))
	}
	end := c.now()

	local := start.Add(end.Sub(start) / 2).UnixMilli()
	offset := resp.ServerTime - local
	c.offsetMs.Store(offset)

	return time.Duration(offset) * time.Millisecond, nil
}

// BookTickers lists the best bid/ask of every pair.
func (c *Client) BookTickers(ctx context.Context) ([]domain.BookTicker, error) {
	var resp []bookTickerResponse
	if err := c.send(ctx, http.MethodGet, pathBookTicker, nil, false, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.BookTicker, 0, len(resp))
	for _, r := range resp {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// AccountBalances lists every balance of the account.
func (c *Client) AccountBalances(ctx context.Context) ([]domain.RawBalance, error) {
	var resp accountResponse
	if err := c.send(ctx, http.MethodGet, pathAccount, url.Values{}, true, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.RawBalance, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		out = append(out, domain.RawBalance{Asset: b.Asset, Free: b.Free, Locked: b.Locked})
	}
	return out, nil
}

// LotSizeRules fetches the full exchange info and keeps the requested symbols.
// Asking the endpoint for a symbol it does not list fails the whole request,
// so filtering happens locally.
func (c *Client) LotSizeRules(ctx context.Context, symbols []string) (map[string]domain.LotSizeRule, error) {
	var resp exchangeInfoResponse
	if err := c.send(ctx, http.MethodGet, pathExchangeInfo, nil, false, &resp); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	rules := make(map[string]domain.LotSizeRule, len(symbols))
	for _, sym := range resp.Symbols {
		if _, ok := wanted[sym.Symbol]; !ok {
			continue
		}
		for _, f := range sym.Filters {
			if f.FilterType != filterLotSize {
				continue
			}
			rule, err := domain.ParseLotSizeRule(sym.Symbol, f.StepSize, f.MinQty)
			if err != nil {
				c.logger.Warn(ctx, "ignoring malformed lot size filter", "symbol", sym.Symbol, "error", err)
				break
			}
			rules[sym.Symbol] = rule
			break
		}
	}
	return rules, nil
}

// PlaceMarketOrder submits a MARKET order sized by order.Field.
func (c *Client) PlaceMarketOrder(ctx context.Context, order domain.MarketOrder) (*domain.OrderResult, error) {
	if order.Field != domain.FieldQuantity && order.Field != domain.FieldQuoteOrderQty {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unknown quantity field %q", order.Field)))
	}

	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "MARKET")
	params.Set(string(order.Field), order.Amount)

	return c.placeOrder(ctx, order.Symbol, params)
}

// PlaceLimitOrder submits a LIMIT GTC order.
func (c *Client) PlaceLimitOrder(ctx context.Context, order domain.LimitOrder) (*domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", order.Quantity)
	params.Set("price", order.Price)

	return c.placeOrder(ctx, order.Symbol, params)
}

func (c *Client) placeOrder(ctx context.Context, symbol string, params url.Values) (*domain.OrderResult, error) {
	clientOrderID := c.newID()
	params.Set("newClientOrderId", clientOrderID)
	params.Set("newOrderRespType", "FULL")

	path := pathOrder
	if c.cfg.DryRun {
		path = pathOrderTest
	}

	var resp orderResponse
	if err := c.send(ctx, http.MethodPost, path, params, true, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(symbol, clientOrderID, c.cfg.DryRun), nil
}

func (c *Client) timestamp() int64 {
	return c.now().UnixMilli() + c.offsetMs.Load()
}

// send executes one request behind the circuit breaker. Signed requests get a
// timestamp, recvWindow and signature appended to the encoded params; GET
// carries them in the query and POST in a form body.
func (c *Client) send(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	_, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		req := c.http.NewRequestWithOptions(
			httpclient.WithResponseErrorHandler(handleErrorResponse),
			httpclient.WithLabels(httpclient.NewLabel("endpoint", path)),
			httpclient.WithWeight(pathWeights[path]),
		)

		payload := params.Encode()
		if signed {
			if payload != "" {
				payload += "&"
			}
			payload += "timestamp=" + strconv.FormatInt(c.timestamp(), 10) +
				"&recvWindow=" + strconv.FormatInt(c.cfg.RecvWindow.Milliseconds(), 10)
			payload += "&signature=" + c.signer.Sign(payload)
			req.SetHeader(headerAPIKey, c.signer.APIKey())
		}
		if out != nil {
			req.SetResult(out)
		}

		var (
			resp *httpclient.Response
			err  error
		)
		switch method {
		case http.MethodPost:
			req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
			req.SetBody(payload)
			resp, err = req.Post(ctx, path)
		default:
			req.SetRawQuery(payload)
			resp, err = req.Get(ctx, path)
		}
		return resp, classifyError(path, err)
	})
	return err
}

// handleErrorResponse turns non-2xx responses into app errors. A JSON body with
// a non-zero code is an exchange rejection; anything else is a transport failure.
func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode < http.StatusBadRequest {
		return nil
	}

	apiErr := &APIError{HTTPStatus: statusCode}
	if json.Unmarshal(body, apiErr) == nil && apiErr.Code != 0 {
		return apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithCause(apiErr),
			apperror.WithStatusCode(statusCode),
			apperror.WithContext(apiErr.Message))
	}

	snippet := string(body[:min(len(body), 200)])
	return apperror.New(apperror.CodeTransportError,
		apperror.WithStatusCode(statusCode),
		apperror.WithContext(fmt.Sprintf("http %d: %s", statusCode, snippet)))
}

func classifyError(path string, err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeTransportError,
		apperror.WithCause(err),
		apperror.WithContext(path))
}

// isHealthyError keeps client-side rejections (bad params, insufficient balance)
// from opening the breaker.
func isHealthyError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus < http.StatusInternalServerError &&
		apiErr.HTTPStatus != http.StatusTooManyRequests && apiErr.HTTPStatus != http.StatusTeapot
}
