// Package apm wraps OpenTelemetry tracing for the trading services.
package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans on a named OTEL tracer.
type Tracer interface {
	StartSpanFromContext(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
}

// Span is the subset of trace.Span used by the services.
type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	SetAttribute(value attribute.KeyValue)
	AddEvent(name string, options ...trace.EventOption)
	NoticeError(err error)
	SpanContext() trace.SpanContext
	End(options ...trace.SpanEndOption)
}

type openTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a tracer from the global provider. It follows a provider
// installed later through otel.SetTracerProvider.
func NewTracer(name string) Tracer {
	return &openTracer{otel.Tracer(name)}
}

func (t *openTracer) StartSpanFromContext(
	ctx context.Context, name string, opts ...trace.SpanStartOption,
) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, &traceSpan{span}
}

func (t *openTracer) SpanFromContext(ctx context.Context) Span {
	return &traceSpan{trace.SpanFromContext(ctx)}
}

type traceSpan struct {
	span trace.Span
}

func (s *traceSpan) SetAttributes(values ...attribute.KeyValue) {
	s.span.SetAttributes(values...)
}

func (s *traceSpan) SetAttribute(value attribute.KeyValue) {
	s.span.SetAttributes(value)
}

func (s *traceSpan) AddEvent(name string, options ...trace.EventOption) {
	s.span.AddEvent(name, options...)
}

// NoticeError records err and marks the span failed. A nil err is ignored.
func (s *traceSpan) NoticeError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *traceSpan) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

func (s *traceSpan) End(options ...trace.SpanEndOption) {
	s.span.End(options...)
}
