// Package ratelimit paces exchange calls by request weight on top of
// golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/fd1az/stablearb/internal/apperror"
)

// Binance.US request weights for the endpoints the bot calls.
const (
	WeightServerTime   = 1
	WeightBookTicker   = 2
	WeightAccount      = 10
	WeightExchangeInfo = 10
	WeightOrder        = 1
)

// Limiter is a weight budget refilled per minute. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing weightPerMinute with a burst of 10% of the
// budget. A non-positive budget returns nil, which disables limiting.
func New(weightPerMinute int) *Limiter {
	if weightPerMinute <= 0 {
		return nil
	}

	burst := max(weightPerMinute/10, WeightExchangeInfo)
	return NewWithBurst(float64(weightPerMinute)/60.0, burst)
}

// NewWithBurst creates a limiter refilling perSecond weight up to burst.
func NewWithBurst(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Wait blocks for a single unit of weight.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until weight is available. Weight above the burst is clamped.
// Cancellation returns ctx.Err(); a wait that would outlive the deadline
// returns RATE_LIMIT_EXCEEDED.
func (l *Limiter) WaitN(ctx context.Context, weight int) error {
	if l == nil {
		return ctx.Err()
	}
	weight = min(max(weight, 1), l.limiter.Burst())

	if err := l.limiter.WaitN(ctx, weight); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return ctxErr
		}
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}
	return nil
}

// Allow reports whether a unit of weight may be spent now.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}
