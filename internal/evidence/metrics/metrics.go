package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evidence module.
type Metrics struct {
	EvidenceCreated    prometheus.Counter
	EvidenceBackfilled prometheus.Counter
	LockRejections     prometheus.Counter
	BackfillDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all evidence module metrics registered.
func New() *Metrics {
	return &Metrics{
		EvidenceCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_evidence_created_total",
			Help: "Total number of evidence items created",
		}),
		EvidenceBackfilled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_evidence_backfilled_total",
			Help: "Total number of evidence items created by source backfill",
		}),
		LockRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_evidence_lock_rejections_total",
			Help: "Total number of mutations rejected because evidence was locked",
		}),
		BackfillDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_evidence_backfill_duration_seconds",
			Help:    "Duration of BackfillFromSource runs",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveBackfill records the duration of one backfill run.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveBackfill(start time.Time) {
	m.BackfillDuration.Observe(time.Since(start).Seconds())
}
