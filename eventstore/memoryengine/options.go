package memoryengine

import (
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithLogger sets the logger for the EventStore.
// Debug level receives every read with its duration, info level the operation results.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.instrumentation.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for the EventStore.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.instrumentation.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventStore.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.instrumentation.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventStore.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(es *EventStore) error {
		es.instrumentation.Tracing = collector
		return nil
	}
}

// WithLinkBase sets the URL that self and next links of a Page are built on.
func WithLinkBase(linkBase string) Option {
	return func(es *EventStore) error {
		es.linkBase = linkBase
		return nil
	}
}
