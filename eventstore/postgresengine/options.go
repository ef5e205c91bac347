package postgresengine

import (
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithTableName sets the table name for the EventStore.
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Event counts and durations per operation (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.instrumentation.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the EventStore.
// It receives the same messages as the Logger, with the context of the operation for trace correlation.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.instrumentation.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventStore.
// It receives add/query durations, event counts, and backend errors by error type.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.instrumentation.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventStore.
// One span is created per add, query and paginate operation.
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
