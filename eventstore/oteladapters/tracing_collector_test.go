package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/oteladapters"
)

func givenTracer() (trace.Tracer, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return provider.Tracer("test"), exporter
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// setup
	tracer, exporter := givenTracer()
	collector := oteladapters.NewTracingCollector(tracer)

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), eventstore.SpanNameQuery, map[string]string{
		eventstore.LabelBackend: "postgres",
	})
	spanCtx.AddAttribute(eventstore.SpanAttrConsistency, "strong")
	collector.FinishSpan(spanCtx, eventstore.StatusSuccess, map[string]string{eventstore.SpanAttrEventCount: "12"})

	// assert
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, eventstore.SpanNameQuery, span.Name)
	assert.Equal(t, trace.SpanKindClient, span.SpanKind)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assertSpanHasAttribute(t, span, eventstore.LabelBackend, "postgres")
	assertSpanHasAttribute(t, span, eventstore.SpanAttrConsistency, "strong")
	assertSpanHasAttribute(t, span, eventstore.SpanAttrEventCount, "12")
}

func Test_TracingCollector_FinishSpan_Error(t *testing.T) {
	// setup
	tracer, exporter := givenTracer()
	collector := oteladapters.NewTracingCollector(tracer)
	_, spanCtx := collector.StartSpan(context.Background(), eventstore.SpanNameAdd, nil)

	// act
	collector.FinishSpan(spanCtx, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: eventstore.ErrorTypeDuplicate})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, eventstore.ErrorTypeDuplicate, spans[0].Status.Description)
}

func Test_TracingCollector_UnknownStatus(t *testing.T) {
	// setup
	tracer, exporter := givenTracer()
	collector := oteladapters.NewTracingCollector(tracer)
	_, spanCtx := collector.StartSpan(context.Background(), "custom", nil)

	// act
	collector.FinishSpan(spanCtx, "partial", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "status", "partial")
}

func Test_TracingCollector_ForeignSpanContextIsIgnored(t *testing.T) {
	// setup
	tracer, exporter := givenTracer()
	collector := oteladapters.NewTracingCollector(tracer)

	// act & assert
	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpanContext{}, eventstore.StatusSuccess, nil)
		collector.FinishSpan(nil, eventstore.StatusSuccess, nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

func Test_TracingCollector_NilTracer(t *testing.T) {
	// setup
	collector := oteladapters.NewTracingCollector(nil)

	// act & assert
	assert.NotPanics(t, func() {
		ctx, spanCtx := collector.StartSpan(context.Background(), "noop", nil)
		assert.NotNil(t, ctx)
		collector.FinishSpan(spanCtx, eventstore.StatusSuccess, nil)
	})
}

func Test_TracingCollector_ChildSpansShareTheTrace(t *testing.T) {
	// setup
	tracer, exporter := givenTracer()
	collector := oteladapters.NewTracingCollector(tracer)
	parentCtx, parent := tracer.Start(context.Background(), "http request")

	// act
	_, spanCtx := collector.StartSpan(parentCtx, eventstore.SpanNamePaginate, nil)
	collector.FinishSpan(spanCtx, eventstore.StatusSuccess, nil)
	parent.End()

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(string)            {}
func (foreignSpanContext) AddAttribute(string, string) {}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == expectedValue {
			return
		}
	}

	assert.Failf(t, "missing span attribute", "%s=%s", key, expectedValue)
}
