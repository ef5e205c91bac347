package opensearchengine

import (
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithIndex sets the index the events are stored in.
func WithIndex(index string) Option {
	return func(es *EventStore) error {
		if index == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.index = index

		return nil
	}
}

// WithRefresh makes AddEvents refresh the index, so added events are visible to the next query.
func WithRefresh(refresh bool) Option {
	return func(es *EventStore) error {
		es.refresh = refresh
		return nil
	}
}

// WithLogger sets the logger for the EventStore. Search bodies are logged at debug level.
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
