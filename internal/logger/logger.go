// Package logger provides a context-aware structured logger backed by zap.
package logger

import (
	"context"
	"io"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger writes.
type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LoggerInterface is the logging surface used across the code base.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// The c variants skip additional stack frames when reporting the caller.
	Debugc(ctx context.Context, caller int, msg string, args ...any)
	Infoc(ctx context.Context, caller int, msg string, args ...any)
	Warnc(ctx context.Context, caller int, msg string, args ...any)
	Errorc(ctx context.Context, caller int, msg string, args ...any)
}

// TraceIDFn extracts a trace id from the context. An empty result omits the field.
type TraceIDFn func(ctx context.Context) string

// Logger writes JSON lines through zap.
type Logger struct {
	zl        *zap.Logger
	traceIDFn TraceIDFn
}

var _ LoggerInterface = (*Logger)(nil)

// New builds a Logger writing to w. A nil traceIDFn reads the OpenTelemetry span context.
func New(w io.Writer, level Level, service string, traceIDFn TraceIDFn) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)

	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	if service != "" {
		zl = zl.With(zap.String("service", service))
	}

	if traceIDFn == nil {
		traceIDFn = otelTraceID
	}

	return &Logger{zl: zl, traceIDFn: traceIDFn}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zap.NewNop(), traceIDFn: func(context.Context) string { return "" }}
}

func otelTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.DebugLevel, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.InfoLevel, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.WarnLevel, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 0, zapcore.ErrorLevel, msg, args)
}

func (l *Logger) Debugc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.DebugLevel, msg, args)
}

func (l *Logger) Infoc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.InfoLevel, msg, args)
}

func (l *Logger) Warnc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.WarnLevel, msg, args)
}

func (l *Logger) Errorc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller, zapcore.ErrorLevel, msg, args)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) write(ctx context.Context, caller int, lvl zapcore.Level, msg string, args []any) {
	zl := l.zl
	if caller > 0 {
		zl = zl.WithOptions(zap.AddCallerSkip(caller))
	}

	if !zl.Core().Enabled(lvl) {
		return
	}

	if ctx != nil {
		if id := l.traceIDFn(ctx); id != "" {
			args = append(args, "trace_id", id)
		}
	}

	sugar := zl.Sugar()
	switch lvl {
	case zapcore.DebugLevel:
		sugar.Debugw(msg, args...)
	case zapcore.WarnLevel:
		sugar.Warnw(msg, args...)
	case zapcore.ErrorLevel:
		sugar.Errorw(msg, args...)
	default:
		sugar.Infow(msg, args...)
	}
}
