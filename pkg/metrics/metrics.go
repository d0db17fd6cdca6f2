package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics. Collectors are created
// unregistered so tests can build throwaway instances; call
// MustRegister once at startup.
type Metrics struct {
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	UpdatesProcessed    prometheus.Counter
	ProcessingLatency   prometheus.Histogram
	DatabaseOperations  *prometheus.CounterVec
}

// New creates all application metrics under the given namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered successfully",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification delivery failures",
		}),
		UpdatesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_processed_total",
			Help:      "Total number of content updates marked processed",
		}),
		ProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Time spent running one batch pass",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// MustRegister registers all collectors with the given registerer.
func (m *Metrics) MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.UpdatesProcessed,
		m.ProcessingLatency,
		m.DatabaseOperations,
	)
}
