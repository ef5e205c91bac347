// Package oteladapters connects the eventstore observability interfaces to OpenTelemetry.
//
// MetricsCollector and TracingCollector take a metric.Meter and a trace.Tracer from the application's
// providers. SlogBridgeLogger sends engine logs through the otelslog bridge, so log records carry the
// trace and span of the operation that wrote them.
//
// Usage:
//
//	store, _ := memoryengine.NewEventStore(
//		memoryengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("eventsd"))),
//		memoryengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("eventsd"))),
//		memoryengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("eventsd")),
//	)
package oteladapters
