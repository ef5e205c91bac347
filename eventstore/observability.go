package eventstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"
)

// Logger interface for statement logging, operational messages, warnings, and error reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// This interface follows the same dependency-free pattern as MetricsCollector and TracingCollector,
// allowing users to integrate with any logging backend that supports context-based correlation.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting repository performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods.
// Engines use the context-aware methods when available and fall back to MetricsCollector otherwise.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from repository operations.
// Like MetricsCollector it is dependency-free, see the oteladapters package for an OpenTelemetry implementation.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// Metric, span and log vocabulary shared by all engines.
const (
	MetricAddDuration    = "eventstore_add_duration_seconds"
	MetricQueryDuration  = "eventstore_query_duration_seconds"
	MetricEventsAdded    = "eventstore_events_added_total"
	MetricEventsQueried  = "eventstore_events_queried_total"
	MetricBackendErrors  = "eventstore_backend_errors_total"
	OperationAdd         = "add"
	OperationQuery       = "query"
	OperationPaginate    = "paginate"
	StatusSuccess        = "success"
	StatusError          = "error"
	SpanNameAdd          = "eventstore.add"
	SpanNameQuery        = "eventstore.query"
	SpanNamePaginate     = "eventstore.paginate"
	LabelOperation       = "operation"
	LabelStatus          = "status"
	LabelBackend         = "backend"
	LabelErrorType       = "error_type"
	SpanAttrEventCount   = "event_count"
	SpanAttrDurationMS   = "duration_ms"
	SpanAttrConsistency  = "consistency"
	SpanAttrReadNode     = "read_node"
	LogAttrError         = "error"
	LogAttrStatement     = "statement"
	LogAttrEventCount    = "event_count"
	LogAttrDurationMS    = "duration_ms"
	LogAttrBackend       = "backend"
	LogAttrOperation     = "operation"
	logMsgStatement      = "executed statement for: "
	logMsgOperation      = "eventstore operation: "
	logMsgOperationError = "eventstore operation failed: "
)

// Error types reported in metrics and spans.
const (
	ErrorTypeBuildQuery = "build_query_error"
	ErrorTypeBackend    = "backend_error"
	ErrorTypeScan       = "scan_error"
	ErrorTypeDuplicate  = "duplicate_id"
	ErrorTypeCanceled   = "canceled"
	ErrorTypeInvalid    = "invalid_request"
)

// Instrumentation bundles the optional observability collectors of an engine. Any field may be nil.
type Instrumentation struct {
	Backend          string
	Logger           Logger
	ContextualLogger ContextualLogger
	Metrics          MetricsCollector
	Tracing          TracingCollector
}

// Observation tracks one repository operation from start to success or failure.
// A nil *Observation is valid and records nothing.
type Observation struct {
	in        Instrumentation
	ctx       context.Context
	operation string
	span      SpanContext
	start     time.Time
}

// Start begins observing operation, starting a span if tracing is configured.
// The returned context carries the span and should be used for the backend call.
func (in Instrumentation) Start(ctx context.Context, operation string, attrs map[string]string) (context.Context, *Observation) {
	o := &Observation{in: in, ctx: ctx, operation: operation, start: time.Now()}

	if in.Tracing != nil {
		spanAttrs := map[string]string{LabelOperation: operation, LabelBackend: in.Backend}
		for k, v := range attrs {
			spanAttrs[k] = v
		}

		o.ctx, o.span = in.Tracing.StartSpan(ctx, spanName(operation), spanAttrs)
	}

	return o.ctx, o
}

// LogStatement logs a backend statement with its execution time at debug level.
func (o *Observation) LogStatement(statement string, duration time.Duration) {
	if o == nil {
		return
	}

	o.in.LogStatement(o.ctx, o.operation, statement, duration)
}

// LogStatement logs a backend statement executed for operation at debug level.
// Engines use it where no Observation is at hand, e.g. in a PageReader.
func (in Instrumentation) LogStatement(ctx context.Context, operation string, statement string, duration time.Duration) {
	args := []any{LogAttrBackend, in.Backend, LogAttrDurationMS, ToMilliseconds(duration), LogAttrStatement, statement}

	if in.Logger != nil {
		in.Logger.Debug(logMsgStatement+operation, args...)
	}

	if in.ContextualLogger != nil {
		in.ContextualLogger.DebugContext(ctx, logMsgStatement+operation, args...)
	}
}

// Warn logs a non-critical problem, like a failure to release a backend resource.
func (in Instrumentation) Warn(ctx context.Context, message string, err error) {
	args := []any{LogAttrBackend, in.Backend, LogAttrError, err.Error()}

	if in.Logger != nil {
		in.Logger.Warn(message, args...)
	}

	if in.ContextualLogger != nil {
		in.ContextualLogger.WarnContext(ctx, message, args...)
	}
}

// Succeed finishes the observation, recording eventCount events.
func (o *Observation) Succeed(eventCount int) {
	if o == nil {
		return
	}

	duration := time.Since(o.start)
	args := []any{LogAttrBackend, o.in.Backend, LogAttrEventCount, eventCount, LogAttrDurationMS, ToMilliseconds(duration)}

	if o.in.Logger != nil {
		o.in.Logger.Info(logMsgOperation+o.operation, args...)
	}

	if o.in.ContextualLogger != nil {
		o.in.ContextualLogger.InfoContext(o.ctx, logMsgOperation+o.operation, args...)
	}

	o.recordDuration(duration, StatusSuccess)
	o.recordValue(countMetric(o.operation), float64(eventCount))

	if o.span != nil {
		o.span.SetStatus(StatusSuccess)
		o.span.AddAttribute(SpanAttrDurationMS, formatMilliseconds(duration))
		o.in.Tracing.FinishSpan(o.span, StatusSuccess, map[string]string{
			SpanAttrEventCount: fmt.Sprintf("%d", eventCount),
		})
	}
}

// Fail finishes the observation with err, classified as errorType. It returns err unchanged.
func (o *Observation) Fail(errorType string, err error) error {
	if o == nil {
		return err
	}

	duration := time.Since(o.start)
	args := []any{LogAttrBackend, o.in.Backend, LogAttrError, err.Error(), LabelErrorType, errorType}

	if o.in.Logger != nil {
		o.in.Logger.Error(logMsgOperationError+o.operation, args...)
	}

	if o.in.ContextualLogger != nil {
		o.in.ContextualLogger.ErrorContext(o.ctx, logMsgOperationError+o.operation, args...)
	}

	o.recordDuration(duration, StatusError)
	o.incrementErrors(errorType)

	if o.span != nil {
		o.span.SetStatus(StatusError)
		o.span.AddAttribute(LabelErrorType, errorType)
		o.span.AddAttribute(SpanAttrDurationMS, formatMilliseconds(duration))
		o.in.Tracing.FinishSpan(o.span, StatusError, map[string]string{LabelErrorType: errorType})
	}

	return err
}

// ObserveQuery observes the complete iteration of a lazy query as one OperationQuery.
// Stopping the iteration early counts as success.
func (in Instrumentation) ObserveQuery(
	ctx context.Context,
	query func(ctx context.Context) iter.Seq2[Event, error],
) iter.Seq2[Event, error] {

	return func(yield func(Event, error) bool) {
		queryCtx, observation := in.Start(ctx, OperationQuery, nil)
		count := 0

		for event, err := range query(queryCtx) {
			if err != nil {
				yield(Event{}, observation.Fail(ClassifyError(err), err))
				return
			}

			count++

			if !yield(event, nil) {
				break
			}
		}

		observation.Succeed(count)
	}
}

// ClassifyError maps err to one of the ErrorType values.
func ClassifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeCanceled
	case errors.Is(err, ErrDuplicateEventID):
		return ErrorTypeDuplicate
	case errors.Is(err, ErrBuildingQueryFailed):
		return ErrorTypeBuildQuery
	case errors.Is(err, ErrScanningDBRowFailed):
		return ErrorTypeScan
	case errors.Is(err, ErrMalformedContinuationToken),
		errors.Is(err, ErrUnknownQueryParameter),
		errors.Is(err, ErrInvalidParameterValue),
		errors.Is(err, ErrInvalidPageSize):
		return ErrorTypeInvalid
	default:
		return ErrorTypeBackend
	}
}

func (o *Observation) labels(status string) map[string]string {
	return map[string]string{
		LabelOperation: o.operation,
		LabelStatus:    status,
		LabelBackend:   o.in.Backend,
	}
}

func (o *Observation) recordDuration(duration time.Duration, status string) {
	if o.in.Metrics == nil {
		return
	}

	metric := MetricQueryDuration
	if o.operation == OperationAdd {
		metric = MetricAddDuration
	}

	if contextual, ok := o.in.Metrics.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metric, duration, o.labels(status))
		return
	}

	o.in.Metrics.RecordDuration(metric, duration, o.labels(status))
}

func (o *Observation) recordValue(metric string, value float64) {
	if o.in.Metrics == nil {
		return
	}

	if contextual, ok := o.in.Metrics.(ContextualMetricsCollector); ok {
		contextual.RecordValueContext(o.ctx, metric, value, o.labels(StatusSuccess))
		return
	}

	o.in.Metrics.RecordValue(metric, value, o.labels(StatusSuccess))
}

func (o *Observation) incrementErrors(errorType string) {
	if o.in.Metrics == nil {
		return
	}

	labels := o.labels(StatusError)
	labels[LabelErrorType] = errorType

	if contextual, ok := o.in.Metrics.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(o.ctx, MetricBackendErrors, labels)
		return
	}

	o.in.Metrics.IncrementCounter(MetricBackendErrors, labels)
}

func spanName(operation string) string {
	switch operation {
	case OperationAdd:
		return SpanNameAdd
	case OperationPaginate:
		return SpanNamePaginate
	default:
		return SpanNameQuery
	}
}

func countMetric(operation string) string {
	if operation == OperationAdd {
		return MetricEventsAdded
	}

	return MetricEventsQueried
}

// ToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func ToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}
