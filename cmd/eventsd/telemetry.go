package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/typed-eventstore-go/config"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/oteladapters"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/promadapters"
)

// telemetry holds the collectors handed to the event store engine.
// OpenTelemetry signals are exported as JSON lines to the telemetry writer.
type telemetry struct {
	metrics        eventstore.MetricsCollector
	tracing        eventstore.TracingCollector
	logger         eventstore.ContextualLogger
	metricsHandler http.Handler
	shutdowns      []func(context.Context) error
}

// Exporter constructors, replaced in tests.
var (
	newMetricExporter = func(w io.Writer) (sdkmetric.Exporter, error) {
		return stdoutmetric.New(stdoutmetric.WithWriter(w))
	}
	newSpanExporter = func(w io.Writer) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(w))
	}
	newLogExporter = func(w io.Writer) (sdklog.Exporter, error) {
		return stdoutlog.New(stdoutlog.WithWriter(w))
	}
)

func setupTelemetry(cfg config.TelemetryConfig, out io.Writer) (*telemetry, error) {
	t := &telemetry{}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	switch cfg.Metrics {
	case config.MetricsPrometheus:
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		t.metrics = promadapters.NewMetricsCollector(registry)
		t.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	case config.MetricsOTel:
		exporter, err := newMetricExporter(out)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}

		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval))),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(provider)

		t.metrics = oteladapters.NewMetricsCollector(provider.Meter(cfg.ServiceName))
		t.shutdowns = append(t.shutdowns, provider.Shutdown)
	}

	if cfg.Tracing {
		exporter, err := newSpanExporter(out)
		if err != nil {
			return nil, t.abort(fmt.Errorf("failed to create trace exporter: %w", err))
		}

		provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
		otel.SetTracerProvider(provider)

		t.tracing = oteladapters.NewTracingCollector(provider.Tracer(cfg.ServiceName))
		t.shutdowns = append(t.shutdowns, provider.Shutdown)
	}

	if cfg.Logs {
		exporter, err := newLogExporter(out)
		if err != nil {
			return nil, t.abort(fmt.Errorf("failed to create log exporter: %w", err))
		}

		provider := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
			sdklog.WithResource(res),
		)

		t.logger = oteladapters.NewSlogBridgeLogger(cfg.ServiceName, otelslog.WithLoggerProvider(provider))
		t.shutdowns = append(t.shutdowns, provider.Shutdown)
	}

	return t, nil
}

// abort stops the providers created before setup failed with err.
func (t *telemetry) abort(err error) error {
	return errors.Join(err, t.Shutdown(context.Background()))
}

// Shutdown flushes and stops the OpenTelemetry providers in reverse setup order.
func (t *telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, t.shutdowns[i](ctx))
	}

	return errors.Join(errs...)
}
