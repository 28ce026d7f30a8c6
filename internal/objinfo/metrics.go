package objinfo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the object_info cache.
type Metrics struct {
	RegistryNodes      prometheus.Gauge
	CachedNodes        prometheus.Gauge
	ExtractionFailures prometheus.Counter
	FallbackFailures   prometheus.Counter
	WatcherErrors      prometheus.Counter
	ExtractDuration    prometheus.Histogram
	Requests           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RegistryNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodehost_registry_nodes",
			Help: "Number of nodes in the node registry at the last watcher cycle",
		}),
		CachedNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodehost_objinfo_cached_nodes",
			Help: "Number of nodes with cached metadata",
		}),
		ExtractionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodehost_objinfo_extraction_failures_total",
			Help: "Total number of nodes whose metadata extraction failed",
		}),
		FallbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodehost_objinfo_fallback_failures_total",
			Help: "Total number of failed extractions while serving a request directly",
		}),
		WatcherErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodehost_objinfo_watcher_errors_total",
			Help: "Total number of watcher cycles aborted by an unexpected error",
		}),
		ExtractDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodehost_objinfo_extract_duration_seconds",
			Help:    "Time spent extracting metadata for one node",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodehost_objinfo_requests_total",
				Help: "object_info requests by route and by where the answer came from",
			},
			[]string{"route", "source"},
		),
	}
}
