package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arbitrage"

// Metrics holds the trader's OTEL instruments. A nil *Metrics records nothing.
type Metrics struct {
	cycles        metric.Int64Counter
	cycleDuration metric.Float64Histogram
	dealsFound    metric.Int64Counter
	trades        metric.Int64Counter
	conversions   metric.Int64Counter
	spread        metric.Float64Histogram
}

// NewMetrics registers the instruments on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	m := &Metrics{}
	var err error

	m.cycles, err = meter.Int64Counter(
		"arbitrage_cycles_total",
		metric.WithDescription("Trading cycles run"),
	)
	if err != nil {
		return nil, err
	}

	m.cycleDuration, err = meter.Float64Histogram(
		"arbitrage_cycle_duration_seconds",
		metric.WithDescription("Trading cycle latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.dealsFound, err = meter.Int64Counter(
		"arbitrage_deals_found_total",
		metric.WithDescription("Deals that cleared the profit threshold"),
	)
	if err != nil {
		return nil, err
	}

	m.trades, err = meter.Int64Counter(
		"arbitrage_trades_total",
		metric.WithDescription("Trade sequences by result"),
	)
	if err != nil {
		return nil, err
	}

	m.conversions, err = meter.Int64Counter(
		"arbitrage_conversions_total",
		metric.WithDescription("Stablecoin conversions by route and result"),
	)
	if err != nil {
		return nil, err
	}

	m.spread, err = meter.Float64Histogram(
		"arbitrage_deal_spread_percent",
		metric.WithDescription("Spread of found deals"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCycle counts a finished cycle.
func (m *Metrics) RecordCycle(ctx context.Context, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.cycles.Add(ctx, 1, attrs)
	m.cycleDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordDeal counts a found deal.
func (m *Metrics) RecordDeal(ctx context.Context, token string, spreadPercent float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("token", token))
	m.dealsFound.Add(ctx, 1, attrs)
	m.spread.Record(ctx, spreadPercent, attrs)
}

// RecordTrade counts a finished sequence.
func (m *Metrics) RecordTrade(ctx context.Context, token string, success bool) {
	if m == nil {
		return
	}
	m.trades.Add(ctx, 1, metric.WithAttributes(
		attribute.String("token", token),
		attribute.Bool("success", success),
	))
}

// RecordConversion counts a conversion attempt.
func (m *Metrics) RecordConversion(ctx context.Context, from, to string, success bool) {
	if m == nil {
		return
	}
	m.conversions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.Bool("success", success),
	))
}
