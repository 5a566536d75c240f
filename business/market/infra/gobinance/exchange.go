// Package gobinance implements the market Exchange port with the go-binance SDK
// pointed at Binance.US.
package gobinance

import (
	"context"
	"errors"
	"net/http"
	"time"

	gbinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/stablearb/business/market/app"
	"github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/circuitbreaker"
	"github.com/fd1az/stablearb/internal/logger"
	"github.com/fd1az/stablearb/internal/ratelimit"
)

var _ app.Exchange = (*Exchange)(nil)

const (
	providerName = "gobinance"

	// BaseURL is the Binance.US REST endpoint.
	BaseURL = "https://api.binance.us"
)

// Config holds the SDK client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	RecvWindow        time.Duration
	RequestTimeout    time.Duration
	RequestsPerMinute int
	DryRun            bool
}

// Exchange adapts gbinance.Client to the market port.
type Exchange struct {
	cfg     Config
	client  *gbinance.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker[any]
	logger  logger.LoggerInterface
}

// New creates an SDK-backed exchange.
func New(cfg Config, log logger.LoggerInterface) (*Exchange, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, apperror.New(apperror.CodeCredentialsMissing,
			apperror.WithContext("binance.us api key and secret are required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = 5 * time.Second
	}

	client := gbinance.NewClient(cfg.APIKey, cfg.APISecret)
	client.BaseURL = cfg.BaseURL
	client.HTTPClient = &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	cbCfg := circuitbreaker.DefaultConfig(providerName)
	cbCfg.IsSuccessful = isHealthyError
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Exchange{
		cfg:     cfg,
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[any](cbCfg),
		logger:  log,
	}, nil
}

// Name identifies the driver.
func (e *Exchange) Name() string {
	return providerName
}

// BreakerState returns the state of the request circuit breaker.
func (e *Exchange) BreakerState() gobreaker.State {
	return e.breaker.State()
}

// SyncTime stores the server offset on the SDK client, which applies it to
// every signed request.
func (e *Exchange) SyncTime(ctx context.Context) (time.Duration, error) {
	res, err := e.call(ctx, ratelimit.WeightServerTime, func() (any, error) {
		return e.client.NewSetServerTimeService().Do(ctx)
	})
	if err != nil {
		return 0, apperror.New(apperror.CodeClockSyncFailed, apperror.WithCause(err))
	}
	return time.Duration(res.(int64)) * time.Millisecond, nil
}

// BookTickers lists the best bid/ask of every pair.
func (e *Exchange) BookTickers(ctx context.Context) ([]domain.BookTicker, error) {
	res, err := e.call(ctx, ratelimit.WeightBookTicker, func() (any, error) {
		return e.client.NewListBookTickersService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	tickers := res.([]*gbinance.BookTicker)
	out := make([]domain.BookTicker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, domain.BookTicker{
			Symbol:   t.Symbol,
			BidPrice: t.BidPrice,
			BidQty:   t.BidQuantity,
			AskPrice: t.AskPrice,
			AskQty:   t.AskQuantity,
		})
	}
	return out, nil
}

// AccountBalances lists every balance of the account.
func (e *Exchange) AccountBalances(ctx context.Context) ([]domain.RawBalance, error) {
	res, err := e.call(ctx, ratelimit.WeightAccount, func() (any, error) {
		return e.client.NewGetAccountService().Do(ctx, e.recvWindow())
	})
	if err != nil {
		return nil, err
	}

	account := res.(*gbinance.Account)
	out := make([]domain.RawBalance, 0, len(account.Balances))
	for _, b := range account.Balances {
		out = append(out, domain.RawBalance{Asset: b.Asset, Free: b.Free, Locked: b.Locked})
	}
	return out, nil
}

// LotSizeRules fetches the full exchange info and keeps the requested symbols.
func (e *Exchange) LotSizeRules(ctx context.Context, symbols []string) (map[string]domain.LotSizeRule, error) {
	res, err := e.call(ctx, ratelimit.WeightExchangeInfo, func() (any, error) {
		return e.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	info := res.(*gbinance.ExchangeInfo)
	rules := make(map[string]domain.LotSizeRule, len(symbols))
	for _, sym := range info.Symbols {
		if _, ok := wanted[sym.Symbol]; !ok {
			continue
		}
		lot := sym.LotSizeFilter()
		if lot == nil {
			continue
		}
		rule, err := domain.ParseLotSizeRule(sym.Symbol, lot.StepSize, lot.MinQuantity)
		if err != nil {
			e.logger.Warn(ctx, "ignoring malformed lot size filter", "symbol", sym.Symbol, "error", err)
			continue
		}
		rules[sym.Symbol] = rule
	}
	return rules, nil
}

// PlaceMarketOrder submits a MARKET order sized by order.Field.
func (e *Exchange) PlaceMarketOrder(ctx context.Context, order domain.MarketOrder) (*domain.OrderResult, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(gbinance.SideType(order.Side)).
		Type(gbinance.OrderTypeMarket)

	switch order.Field {
	case domain.FieldQuantity:
		svc = svc.Quantity(order.Amount)
	case domain.FieldQuoteOrderQty:
		svc = svc.QuoteOrderQty(order.Amount)
	default:
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("unknown quantity field "+string(order.Field)))
	}

	return e.placeOrder(ctx, order.Symbol, svc)
}

// PlaceLimitOrder submits a LIMIT GTC order.
func (e *Exchange) PlaceLimitOrder(ctx context.Context, order domain.LimitOrder) (*domain.OrderResult, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(gbinance.SideType(order.Side)).
		Type(gbinance.OrderTypeLimit).
		TimeInForce(gbinance.TimeInForceTypeGTC).
		Quantity(order.Quantity).
		Price(order.Price)

	return e.placeOrder(ctx, order.Symbol, svc)
}

func (e *Exchange) placeOrder(ctx context.Context, symbol string, svc *gbinance.CreateOrderService) (*domain.OrderResult, error) {
	clientOrderID := uuid.NewString()
	svc = svc.NewClientOrderID(clientOrderID).NewOrderRespType(gbinance.NewOrderRespTypeFULL)

	if e.cfg.DryRun {
		if _, err := e.call(ctx, ratelimit.WeightOrder, func() (any, error) {
			return nil, svc.Test(ctx, e.recvWindow())
		}); err != nil {
			return nil, err
		}
		// The test endpoint acknowledges without a status.
		return &domain.OrderResult{Symbol: symbol, ClientOrderID: clientOrderID, Test: true}, nil
	}

	res, err := e.call(ctx, ratelimit.WeightOrder, func() (any, error) {
		return svc.Do(ctx, e.recvWindow())
	})
	if err != nil {
		return nil, err
	}

	resp := res.(*gbinance.CreateOrderResponse)
	out := &domain.OrderResult{
		Symbol:             resp.Symbol,
		OrderID:            resp.OrderID,
		ClientOrderID:      resp.ClientOrderID,
		Status:             domain.OrderStatus(resp.Status),
		ExecutedQty:        parseOptionalDecimal(resp.ExecutedQuantity),
		CumulativeQuoteQty: parseOptionalDecimal(resp.CummulativeQuoteQuantity),
	}
	if resp.TransactTime > 0 {
		out.TransactTime = time.UnixMilli(resp.TransactTime)
	}
	return out, nil
}

func (e *Exchange) recvWindow() gbinance.RequestOption {
	return gbinance.WithRecvWindow(e.cfg.RecvWindow.Milliseconds())
}

// call charges weight against the limiter and runs fn behind the breaker.
func (e *Exchange) call(ctx context.Context, weight int, fn func() (any, error)) (any, error) {
	if err := e.limiter.WaitN(ctx, weight); err != nil {
		return nil, err
	}
	return e.breaker.Execute(func() (any, error) {
		res, err := fn()
		return res, classifyError(err)
	})
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if common.IsAPIError(err) {
		var apiErr *common.APIError
		errors.As(err, &apiErr)
		return apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithCause(err),
			apperror.WithContext(apiErr.Message))
	}
	return apperror.New(apperror.CodeTransportError, apperror.WithCause(err))
}

// isHealthyError keeps exchange rejections from opening the breaker.
func isHealthyError(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr)
}
