package testdoubles

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

// SpanContextSpy records status and attributes set on a span.
type SpanContextSpy struct {
	mu         sync.Mutex
	status     string
	attributes map[string]string
}

func (c *SpanContextSpy) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

func (c *SpanContextSpy) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}

	c.attributes[key] = value
}

func (c *SpanContextSpy) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

func (c *SpanContextSpy) Attributes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.attributes)
}

// SpanRecord is one started span.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	FinishStatus    string
	EndAttributes   map[string]string
	Finished        bool
	Span            *SpanContextSpy
}

// TracingCollectorSpy captures calls of eventstore.TracingCollector.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpanRecord
}

func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, eventstore.SpanContext) {

	s.mu.Lock()
	defer s.mu.Unlock()

	span := &SpanContextSpy{}
	s.spans = append(s.spans, &SpanRecord{Name: name, StartAttributes: maps.Clone(attrs), Span: span})

	return ctx, span
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.spans {
		if record.Span == spanCtx {
			record.Finished = true
			record.FinishStatus = status
			record.EndAttributes = maps.Clone(attrs)
		}
	}
}

// Spans returns copies of all span records.
func (s *TracingCollectorSpy) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpanRecord, 0, len(s.spans))
	for _, record := range s.spans {
		records = append(records, *record)
	}

	return records
}

// FinishedSpan returns the first finished span with name.
func (s *TracingCollectorSpy) FinishedSpan(name string) (SpanRecord, bool) {
	for _, record := range s.Spans() {
		if record.Name == name && record.Finished {
			return record, true
		}
	}

	return SpanRecord{}, false
}
