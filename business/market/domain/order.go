package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is an order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// QuantityField selects how a market order is sized.
type QuantityField string

const (
	// FieldQuantity sizes the order in base asset units.
	FieldQuantity QuantityField = "quantity"
	// FieldQuoteOrderQty sizes the order in quote asset units.
	FieldQuoteOrderQty QuantityField = "quoteOrderQty"
)

// OrderStatus is the exchange-reported order state.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// MarketOrder is a MARKET order request. Amount is already normalized to the pair's precision.
type MarketOrder struct {
	Symbol string
	Side   Side
	Field  QuantityField
	Amount string
}

func (o MarketOrder) String() string {
	return fmt.Sprintf("%s %s %s=%s", o.Side, o.Symbol, o.Field, o.Amount)
}

// LimitOrder is a LIMIT GTC order request.
type LimitOrder struct {
	Symbol   string
	Side     Side
	Quantity string
	Price    string
}

func (o LimitOrder) String() string {
	return fmt.Sprintf("%s %s %s @ %s", o.Side, o.Symbol, o.Quantity, o.Price)
}

// OrderResult is the exchange acknowledgement of an order.
type OrderResult struct {
	Symbol             string
	OrderID            int64
	ClientOrderID      string
	Status             OrderStatus
	ExecutedQty        decimal.Decimal
	CumulativeQuoteQty decimal.Decimal
	TransactTime       time.Time
	// Test is set for orders sent to the validation-only endpoint.
	Test bool
}

// Filled reports whether the order completed. Anything but FILLED, including an
// empty status, is a failure.
func (r *OrderResult) Filled() bool {
	return r != nil && r.Status == OrderStatusFilled
}

// Symbol joins base and quote assets into an exchange pair symbol.
func Symbol(base, quote string) string {
	return base + quote
}
