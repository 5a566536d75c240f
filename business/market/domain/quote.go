// Package domain contains exchange market data types for the market context.
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/internal/apperror"
)

// BookTicker is a best bid/ask entry as the exchange reports it.
type BookTicker struct {
	Symbol   string
	BidPrice string
	BidQty   string
	AskPrice string
	AskQty   string
}

// Quote is a validated best bid/ask for one pair.
type Quote struct {
	Symbol   string
	BidPrice decimal.Decimal
	BidQty   decimal.Decimal
	AskPrice decimal.Decimal
	AskQty   decimal.Decimal
}

// ParseQuote validates a BookTicker. Every numeric field must parse and be non-negative.
func ParseQuote(t BookTicker) (Quote, error) {
	fields := [4]struct {
		name string
		raw  string
	}{
		{"bidPrice", t.BidPrice},
		{"bidQty", t.BidQty},
		{"askPrice", t.AskPrice},
		{"askQty", t.AskQty},
	}

	var vals [4]decimal.Decimal
	for i, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Quote{}, apperror.New(apperror.CodeQuoteParseError,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s %s=%q", t.Symbol, f.name, f.raw)))
		}
		if d.IsNegative() {
			return Quote{}, apperror.New(apperror.CodeQuoteParseError,
				apperror.WithContext(fmt.Sprintf("%s %s is negative", t.Symbol, f.name)))
		}
		vals[i] = d
	}

	return Quote{
		Symbol:   t.Symbol,
		BidPrice: vals[0],
		BidQty:   vals[1],
		AskPrice: vals[2],
		AskQty:   vals[3],
	}, nil
}

// IsTwoSided reports whether both sides of the book carry a price.
func (q Quote) IsTwoSided() bool {
	return q.BidPrice.IsPositive() && q.AskPrice.IsPositive()
}

// AskNotional is the quote-currency value resting at the best ask.
func (q Quote) AskNotional() decimal.Decimal {
	return q.AskQty.Mul(q.AskPrice)
}

// BidNotional is the quote-currency value resting at the best bid.
func (q Quote) BidNotional() decimal.Decimal {
	return q.BidQty.Mul(q.BidPrice)
}

// QuoteSnapshot holds the quotes of one refresh. It is rebuilt wholesale, never patched.
type QuoteSnapshot struct {
	quotes  map[string]Quote
	skipped map[string]error
	takenAt time.Time
}

// NewQuoteSnapshot parses tickers. Entries that fail to parse are left out of the
// snapshot and reported through Skipped.
func NewQuoteSnapshot(tickers []BookTicker, takenAt time.Time) *QuoteSnapshot {
	s := &QuoteSnapshot{
		quotes:  make(map[string]Quote, len(tickers)),
		skipped: make(map[string]error),
		takenAt: takenAt,
	}

	for _, t := range tickers {
		q, err := ParseQuote(t)
		if err != nil {
			s.skipped[t.Symbol] = err
			continue
		}
		s.quotes[t.Symbol] = q
	}

	return s
}

// Quote returns the quote for symbol.
func (s *QuoteSnapshot) Quote(symbol string) (Quote, bool) {
	if s == nil {
		return Quote{}, false
	}
	q, ok := s.quotes[symbol]
	return q, ok
}

// Len returns the number of valid quotes.
func (s *QuoteSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

// Skipped returns the parse error of every rejected entry keyed by symbol.
func (s *QuoteSnapshot) Skipped() map[string]error {
	if s == nil {
		return nil
	}
	return s.skipped
}

// TakenAt returns when the snapshot was fetched.
func (s *QuoteSnapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.takenAt
}

// Symbols returns the quoted symbols in lexical order.
func (s *QuoteSnapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.quotes))
	for sym := range s.quotes {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
