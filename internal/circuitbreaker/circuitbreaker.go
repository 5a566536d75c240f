// Package circuitbreaker wraps sony/gobreaker with application defaults.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/stablearb/internal/apperror"
)

// Config holds breaker settings.
type Config struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears closed-state counts; zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureThreshold is the consecutive failure count that opens the breaker.
	FailureThreshold uint32
	// IsSuccessful classifies an error as healthy. Nil counts every error as a failure.
	IsSuccessful  func(err error) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns settings suited to REST exchange calls.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker executes functions returning T behind a circuit breaker.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New builds a Breaker from cfg.
func New[T any](cfg Config) *Breaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
	}
	if cfg.IsSuccessful != nil {
		st.IsSuccessful = func(err error) bool {
			return err == nil || cfg.IsSuccessful(err)
		}
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn unless the breaker is open. Open and half-open rejections
// are returned as CIRCUIT_OPEN / CIRCUIT_HALF_OPEN app errors.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return res, apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err), apperror.WithContext(b.cb.Name()))
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return res, apperror.New(apperror.CodeCircuitHalfOpen, apperror.WithCause(err), apperror.WithContext(b.cb.Name()))
	}
	return res, err
}

// State returns the current breaker state.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker[T]) Name() string {
	return b.cb.Name()
}
