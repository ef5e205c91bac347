package oteladapters

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const totalSuffix = "_total"

// MetricsCollector implements eventstore.ContextualMetricsCollector with OpenTelemetry instruments,
// created on first use per metric name:
//   - RecordDuration: Float64Histogram in seconds
//   - IncrementCounter: Int64Counter
//   - RecordValue: Float64Counter for names ending in "_total", Float64Gauge otherwise
type MetricsCollector struct {
	meter metric.Meter

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	sums       map[string]metric.Float64Counter
	gauges     map[string]metric.Float64Gauge
}

// NewMetricsCollector creates a collector on meter. A nil meter records nothing.
func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		sums:       make(map[string]metric.Float64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), name, duration, labels)
}

func (m *MetricsCollector) RecordDurationContext(ctx context.Context, name string, duration time.Duration, labels map[string]string) {
	histogram, ok := instrument(m, m.histograms, name, func(meter metric.Meter) (metric.Float64Histogram, error) {
		return meter.Float64Histogram(name, metric.WithDescription("Duration of event store operations"), metric.WithUnit("s"))
	})
	if !ok {
		return
	}

	histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attributes(labels)...))
}

func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), name, labels)
}

func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, name string, labels map[string]string) {
	counter, ok := instrument(m, m.counters, name, func(meter metric.Meter) (metric.Int64Counter, error) {
		return meter.Int64Counter(name, metric.WithDescription("Count of event store occurrences"))
	})
	if !ok {
		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(attributes(labels)...))
}

func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), name, value, labels)
}

func (m *MetricsCollector) RecordValueContext(ctx context.Context, name string, value float64, labels map[string]string) {
	attrs := metric.WithAttributes(attributes(labels)...)

	if strings.HasSuffix(name, totalSuffix) {
		sum, ok := instrument(m, m.sums, name, func(meter metric.Meter) (metric.Float64Counter, error) {
			return meter.Float64Counter(name, metric.WithDescription("Number of events handled by the event store"))
		})
		if ok && value >= 0 {
			sum.Add(ctx, value, attrs)
		}

		return
	}

	gauge, ok := instrument(m, m.gauges, name, func(meter metric.Meter) (metric.Float64Gauge, error) {
		return meter.Float64Gauge(name, metric.WithDescription("Current event store value"))
	})
	if !ok {
		return
	}

	gauge.Record(ctx, value, attrs)
}

// instrument returns the cached instrument for name or creates it. Creation failures are not cached.
func instrument[T any](m *MetricsCollector, cache map[string]T, name string, create func(metric.Meter) (T, error)) (T, bool) {
	var zero T

	if m.meter == nil {
		return zero, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := cache[name]; ok {
		return existing, true
	}

	created, err := create(m.meter)
	if err != nil {
		return zero, false
	}

	cache[name] = created

	return created, true
}

func attributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return attrs
}

var _ eventstore.ContextualMetricsCollector = (*MetricsCollector)(nil)
