package binanceus

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/ratelimit"
)

// REST paths.
const (
	pathServerTime   = "/api/v3/time"
	pathBookTicker   = "/api/v3/ticker/bookTicker"
	pathAccount      = "/api/v3/account"
	pathExchangeInfo = "/api/v3/exchangeInfo"
	pathOrder        = "/api/v3/order"
	pathOrderTest    = "/api/v3/order/test"

	headerAPIKey = "X-MBX-APIKEY"

	filterLotSize = "LOT_SIZE"
)

var pathWeights = map[string]int{
	pathServerTime:   ratelimit.WeightServerTime,
	pathBookTicker:   ratelimit.WeightBookTicker,
	pathAccount:      ratelimit.WeightAccount,
	pathExchangeInfo: ratelimit.WeightExchangeInfo,
	pathOrder:        ratelimit.WeightOrder,
	pathOrderTest:    ratelimit.WeightOrder,
}

// APIError is the JSON error body the exchange returns on rejected requests.
type APIError struct {
	Code       int64  `json:"code"`
	Message    string `json:"msg"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance api error %d (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

type bookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

func (r bookTickerResponse) toDomain() domain.BookTicker {
	return domain.BookTicker{
		Symbol:   r.Symbol,
		BidPrice: r.BidPrice,
		BidQty:   r.BidQty,
		AskPrice: r.AskPrice,
		AskQty:   r.AskQty,
	}
}

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Filters []struct {
			FilterType string `json:"filterType"`
			StepSize   string `json:"stepSize,omitempty"`
			MinQty     string `json:"minQty,omitempty"`
			MaxQty     string `json:"maxQty,omitempty"`
		} `json:"filters"`
	} `json:"symbols"`
}

// orderResponse covers the FULL response type. The test endpoint answers {},
// which decodes to the zero value.
type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	Status              string `json:"status"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
}

func (r orderResponse) toDomain(symbol, clientOrderID string, test bool) *domain.OrderResult {
	res := &domain.OrderResult{
		Symbol:             r.Symbol,
		OrderID:            r.OrderID,
		ClientOrderID:      r.ClientOrderID,
		Status:             domain.OrderStatus(r.Status),
		ExecutedQty:        parseOptionalDecimal(r.ExecutedQty),
		CumulativeQuoteQty: parseOptionalDecimal(r.CummulativeQuoteQty),
		Test:               test,
	}
	if res.Symbol == "" {
		res.Symbol = symbol
	}
	if res.ClientOrderID == "" {
		res.ClientOrderID = clientOrderID
	}
	if r.TransactTime > 0 {
		res.TransactTime = time.UnixMilli(r.TransactTime)
	}
	return res
}

func parseOptionalDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
