// Package promadapters implements eventstore.MetricsCollector with Prometheus collectors.
//
// Collectors are registered on first use of a metric name. Their label names are the keys of the labels
// passed with that first use.
//
//	registry := prometheus.NewRegistry()
//	store, _ := postgresengine.NewEventStoreFromPGXPool(pool, postgresengine.WithMetrics(promadapters.NewMetricsCollector(registry)))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
package promadapters
