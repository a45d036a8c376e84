package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ObservationsDropped  prometheus.Counter
	TransformErrors      prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Stream ingest batches.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	LoadFailures            *prometheus.CounterVec // labels: kind={transient,rejected}

	// Dataset and view computation.
	DatasetCounties     prometheus.Gauge
	DatasetReloads      *prometheus.CounterVec // labels: outcome={success,error}
	ViewComputeDuration prometheus.Histogram
	ViewCache           *prometheus.CounterVec // labels: result={hit,miss,error}

	SnapshotsPublished *prometheus.CounterVec // labels: sink, outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_consumed_total",
			Help:      help("County-year rows read from any source."),
		}),
		ObservationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_dropped_total",
			Help:      help("Rows dropped for an empty key or a non-numeric metric."),
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      help("Stream messages that could not be decoded."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the stream ingest loop is active, 0 otherwise."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of messages per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-transform-load cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      help("Ingest batches the dataset failed to fold in, by kind."),
		}, []string{"kind"}),
		DatasetCounties: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_counties",
			Help:      help("Counties in the currently loaded dataset."),
		}),
		DatasetReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      help("Dataset reloads by outcome."),
		}, []string{"outcome"}),
		ViewComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_compute_duration_seconds",
			Help:      help("Time to recompute a dashboard view on a cache miss."),
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_total",
			Help:      help("View cache lookups by result."),
		}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      help("Classification snapshots published by sink and outcome."),
		}, []string{"sink", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ObservationsConsumed,
		m.ObservationsDropped,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.LoadFailures,
		m.DatasetCounties,
		m.DatasetReloads,
		m.ViewComputeDuration,
		m.ViewCache,
		m.SnapshotsPublished,
	}
}
