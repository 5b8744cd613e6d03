package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grid_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// capacity pipeline.
type Metrics struct {
	RecordsIngested *prometheus.CounterVec // labels: operator
	RecordsDropped  *prometheus.CounterVec // labels: reason={invalid_coordinates,transform_failed}
	RecordsWritten  prometheus.Counter
	SourceFailures  *prometheus.CounterVec // labels: kind={missing,schema,read}
	SinkErrors      *prometheus.CounterVec // labels: sink={xlsx,store,kafka,objectstore}
	PipelineRunning prometheus.Gauge

	RunDuration    prometheus.Histogram
	SourceDuration *prometheus.HistogramVec // labels: format={csv,xlsx,html,pdf}
	LastRunSuccess prometheus.Gauge

	// Projection metrics.
	ProjectionCache *prometheus.CounterVec // labels: result={hit,miss}

	// Query API metrics.
	SnapshotReloads prometheus.Counter
	SnapshotRecords prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ingested_total",
			Help:      "Rows read from source files, by grid operator.",
		}, []string{"operator"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Rows dropped during normalization, by reason.",
		}, []string{"reason"}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Canonical records written to the output table.",
		}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Sources skipped, by failure kind.",
		}, []string{"kind"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Secondary sink failures, by sink.",
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_read_duration_seconds",
			Help:      "Time spent extracting one source file, by format.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success_timestamp_seconds",
			Help:      "Unix time of the last run that wrote the canonical table.",
		}),
		ProjectionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_cache_total",
			Help:      "Coordinate projection cache lookups by result.",
		}, []string{"result"}),
		SnapshotReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Times the query API reloaded the canonical table.",
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records in the currently served snapshot.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsIngested,
		m.RecordsDropped,
		m.RecordsWritten,
		m.SourceFailures,
		m.SinkErrors,
		m.PipelineRunning,
		m.RunDuration,
		m.SourceDuration,
		m.LastRunSuccess,
		m.ProjectionCache,
		m.SnapshotReloads,
		m.SnapshotRecords,
	}
}
