// Package metrics exposes the Prometheus instruments for the import engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportMetrics holds the import engine's counters and histograms.
type ImportMetrics struct {
	SessionsStarted   *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	SessionsFailed    *prometheus.CounterVec
	RowsValidated     *prometheus.CounterVec
	RowsRejected      *prometheus.CounterVec
	EntitiesCreated   *prometheus.CounterVec
	BatchSize         *prometheus.HistogramVec
}

// New registers the import metrics on reg and returns them.
func New(reg prometheus.Registerer) *ImportMetrics {
	factory := promauto.With(reg)
	return &ImportMetrics{
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_sessions_started_total",
			Help: "Import sessions started, by record type.",
		}, []string{"record_type"}),
		SessionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_sessions_completed_total",
			Help: "Import sessions that persisted every chunk.",
		}, []string{"record_type"}),
		SessionsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_sessions_failed_total",
			Help: "Import sessions that ended in failure, by phase.",
		}, []string{"record_type", "phase"}),
		RowsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_rows_validated_total",
			Help: "Rows that passed field validation and catalog resolution.",
		}, []string{"record_type"}),
		RowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_rows_rejected_total",
			Help: "Rows rejected during validation.",
		}, []string{"record_type"}),
		EntitiesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_catalog_entities_created_total",
			Help: "Catalog entities auto-created during resolution, by kind.",
		}, []string{"kind"}),
		BatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "import_batch_size_rows",
			Help:    "Validated batch sizes at confirmation time.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8),
		}, []string{"record_type"}),
	}
}
