package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// AppError carries a stable code plus the exchange response status, when
// there was one.
type AppError struct {
	Code Code `json:"code"`
	// StatusCode is the HTTP status returned by the exchange, zero otherwise.
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message"`
	Context    string    `json:"context,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
	stack      []uintptr
}

func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (code: %s, context: %s)", e.Code, e.Message, e.Code, e.Context)
	}
	return fmt.Sprintf("%s: %s (code: %s)", e.Code, e.Message, e.Code)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// LogFields flattens the error into key/value pairs for the structured logger.
func (e *AppError) LogFields() []any {
	fields := []any{"code", e.Code, "message", e.Message}
	if e.StatusCode != 0 {
		fields = append(fields, "http_status", e.StatusCode)
	}
	if e.Context != "" {
		fields = append(fields, "context", e.Context)
	}
	if e.cause != nil {
		fields = append(fields, "cause", e.cause.Error())
	}
	if len(e.stack) > 0 {
		fields = append(fields, "stack", e.formatStack())
	}
	return fields
}

func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates an AppError with the registered message for code.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Timestamp: time.Now(),
		stack:     captureStack(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext attaches the symbol, asset or request the error is about.
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithStatusCode records the exchange's HTTP status.
func WithStatusCode(statusCode int) Option {
	return func(e *AppError) {
		e.StatusCode = statusCode
	}
}

func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Wrap converts err into an AppError. An AppError already in the chain is
// returned as is, picking up context if it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return New(code, WithContext(context), WithCause(err))
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// Transient reports errors caused by the connection to the exchange rather
// than by the request itself. Retrying the same request later may succeed.
func Transient(err error) bool {
	switch GetCode(err) {
	case CodeTransportError,
		CodeServiceTimeout,
		CodeServiceUnavailable,
		CodeRateLimitExceeded,
		CodeCircuitOpen,
		CodeCircuitHalfOpen:
		return true
	}
	return false
}

// LogArgs returns logger arguments for err, expanded with LogFields when err
// wraps an AppError.
func LogArgs(err error) []any {
	args := []any{"error", err}
	var appErr *AppError
	if errors.As(err, &appErr) {
		args = append(args, appErr.LogFields()...)
	}
	return args
}
