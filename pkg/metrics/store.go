package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics contains Prometheus metrics for the multi-database store layer.
type StoreMetrics struct {
	SessionsTotal       *prometheus.CounterVec
	SessionDuration     *prometheus.HistogramVec
	SessionsActive      *prometheus.GaugeVec
	SchemaInitAttempts  *prometheus.CounterVec
	SequenceAllocations *prometheus.CounterVec
	SequenceConflicts   *prometheus.CounterVec
}

// NewStoreMetrics creates and registers store layer metrics.
func NewStoreMetrics(namespace string) *StoreMetrics {
	m := &StoreMetrics{
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "sessions_total",
				Help:      "Total number of database sessions opened",
			},
			[]string{"database", "status"}, // status: committed, rolled_back
		),
		SessionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "session_duration_seconds",
				Help:      "Duration of database sessions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"database"},
		),
		SessionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "sessions_active",
				Help:      "Number of sessions currently open",
			},
			[]string{"database"},
		),
		SchemaInitAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "schema_init_attempts_total",
				Help:      "Total number of schema initialization attempts",
			},
			[]string{"database", "status"}, // status: success, error
		),
		SequenceAllocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sequence",
				Name:      "allocations_total",
				Help:      "Total number of sequenced identifier allocations",
			},
			[]string{"table", "status"}, // status: success, conflict, error
		),
		SequenceConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sequence",
				Name:      "conflict_retries_total",
				Help:      "Total number of duplicate-identifier retries",
			},
			[]string{"table"},
		),
	}

	MustRegister(
		m.SessionsTotal,
		m.SessionDuration,
		m.SessionsActive,
		m.SchemaInitAttempts,
		m.SequenceAllocations,
		m.SequenceConflicts,
	)

	return m
}
