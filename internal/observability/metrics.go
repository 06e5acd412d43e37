package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "facility_repair"

// Metrics holds the instruments recorded during a repair run. Runs are
// one-shot processes, so the collected values are delivered with Push
// rather than scraped.
type Metrics struct {
	// Classification counters.
	RecordsProcessed prometheus.Counter
	RecordsResolved  prometheus.Counter
	RecordsRejected  prometheus.Counter
	RejectionReasons *prometheus.CounterVec // labels: reason

	// Timing.
	ClassifyDuration prometheus.Histogram
	RunDuration      prometheus.Gauge

	// Collaborator state.
	AuditEnabled prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.gatherer = prometheus.DefaultGatherer
	prometheus.MustRegister(
		m.RecordsProcessed,
		m.RecordsResolved,
		m.RecordsRejected,
		m.RejectionReasons,
		m.ClassifyDuration,
		m.RunDuration,
		m.AuditEnabled,
	)
	return m
}

// NewMetricsForTesting creates metrics registered against a throwaway
// registry so parallel tests cannot collide.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	m.gatherer = reg
	reg.MustRegister(
		m.RecordsProcessed,
		m.RecordsResolved,
		m.RecordsRejected,
		m.RejectionReasons,
		m.ClassifyDuration,
		m.RunDuration,
		m.AuditEnabled,
	)
	return m
}

// Push delivers the collected metrics to a Pushgateway under the given job
// name.
func (m *Metrics) Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.gatherer).Push()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of facility records classified.",
		}),
		RecordsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_resolved_total",
			Help:      "Total number of records that gained a ward reference.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Total number of records diverted to the error report.",
		}),
		RejectionReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejection_reasons_total",
			Help:      "Rejections by reason.",
		}, []string{"reason"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time to classify one record, including the ward lookup.",
			Buckets:   prometheus.DefBuckets,
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last repair run.",
		}),
		AuditEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_enabled",
			Help:      "Whether audit publishing was active for the run (1 or 0).",
		}),
	}
}
