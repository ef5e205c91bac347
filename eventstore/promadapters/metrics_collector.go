package promadapters

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const totalSuffix = "_total"

var helpTexts = map[string]string{
	eventstore.MetricAddDuration:   "Duration of event store add operations in seconds",
	eventstore.MetricQueryDuration: "Duration of event store query and paginate operations in seconds",
	eventstore.MetricEventsAdded:   "Total number of events added to the event store",
	eventstore.MetricEventsQueried: "Total number of events read from the event store",
	eventstore.MetricBackendErrors: "Total number of failed event store operations",
}

// MetricsCollector implements eventstore.MetricsCollector:
//   - RecordDuration: HistogramVec with prometheus.DefBuckets
//   - IncrementCounter: CounterVec
//   - RecordValue: CounterVec for names ending in "_total", GaugeVec otherwise
type MetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]labeled[*prometheus.HistogramVec]
	counters   map[string]labeled[*prometheus.CounterVec]
	gauges     map[string]labeled[*prometheus.GaugeVec]
}

type labeled[V any] struct {
	vec    V
	labels []string
}

// NewMetricsCollector creates a collector registering on registerer, prometheus.DefaultRegisterer if nil.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]labeled[*prometheus.HistogramVec]),
		counters:   make(map[string]labeled[*prometheus.CounterVec]),
		gauges:     make(map[string]labeled[*prometheus.GaugeVec]),
	}
}

func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	histogram, ok := vec(m, m.histograms, name, labels, func(labelNames []string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help(name),
			Buckets: prometheus.DefBuckets,
		}, labelNames)
	})
	if !ok {
		return
	}

	histogram.vec.WithLabelValues(histogram.values(labels)...).Observe(duration.Seconds())
}

func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.addToCounter(name, 1, labels)
}

func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	if strings.HasSuffix(name, totalSuffix) {
		if value >= 0 {
			m.addToCounter(name, value, labels)
		}

		return
	}

	gauge, ok := vec(m, m.gauges, name, labels, func(labelNames []string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help(name)}, labelNames)
	})
	if !ok {
		return
	}

	gauge.vec.WithLabelValues(gauge.values(labels)...).Set(value)
}

func (m *MetricsCollector) addToCounter(name string, value float64, labels map[string]string) {
	counter, ok := vec(m, m.counters, name, labels, func(labelNames []string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help(name)}, labelNames)
	})
	if !ok {
		return
	}

	counter.vec.WithLabelValues(counter.values(labels)...).Add(value)
}

// vec returns the collector registered for name, creating and registering it with the label names of labels.
// A collector of the same shape registered by someone else is reused.
func vec[V prometheus.Collector](
	m *MetricsCollector,
	cache map[string]labeled[V],
	name string,
	labels map[string]string,
	create func(labelNames []string) V,
) (labeled[V], bool) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := cache[name]; ok {
		return existing, true
	}

	labelNames := make([]string, 0, len(labels))
	for key := range labels {
		labelNames = append(labelNames, key)
	}
	slices.Sort(labelNames)

	created := labeled[V]{vec: create(labelNames), labels: labelNames}

	if err := m.registerer.Register(created.vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return labeled[V]{}, false
		}

		existing, ok := already.ExistingCollector.(V)
		if !ok {
			return labeled[V]{}, false
		}

		created.vec = existing
	}

	cache[name] = created

	return created, true
}

// values orders labels by the label names of the collector. Missing labels are empty, unknown ones dropped.
func (l labeled[V]) values(labels map[string]string) []string {
	values := make([]string, len(l.labels))
	for i, name := range l.labels {
		values[i] = labels[name]
	}

	return values
}

func help(name string) string {
	if text, ok := helpTexts[name]; ok {
		return text
	}

	return "Event store metric " + name
}

var _ eventstore.MetricsCollector = (*MetricsCollector)(nil)
