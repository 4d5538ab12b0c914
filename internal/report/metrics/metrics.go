package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the report module.
type Metrics struct {
	ReportsGenerated   prometheus.Counter
	GenerateFailures   *prometheus.CounterVec
	GenerateDuration   prometheus.Histogram
	RendersCompleted   prometheus.Counter
	RenderParts        prometheus.Histogram
	RenderDuration     prometheus.Histogram
	SerializationRetry prometheus.Counter
}

// New creates a new Metrics instance with all report module metrics registered.
func New() *Metrics {
	return &Metrics{
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_reports_generated_total",
			Help: "Total number of report versions generated",
		}),
		GenerateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_report_generate_failures_total",
			Help: "Total number of failed generate attempts by error code",
		}, []string{"code"}),
		GenerateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_report_generate_duration_seconds",
			Help:    "Duration of the report generate transaction",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RendersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_report_renders_total",
			Help: "Total number of completed document renders",
		}),
		RenderParts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_report_render_parts",
			Help:    "Number of files produced per render, main included",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_report_render_duration_seconds",
			Help:    "Duration of document rendering",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SerializationRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_report_serialization_conflicts_total",
			Help: "Total number of generate attempts aborted by a serialization conflict",
		}),
	}
}

// ObserveGenerate records the duration of one generate transaction.
func (m *Metrics) ObserveGenerate(start time.Time) {
	m.GenerateDuration.Observe(time.Since(start).Seconds())
}

// ObserveRender records the duration and fan-out of one render.
func (m *Metrics) ObserveRender(start time.Time, parts int) {
	m.RenderDuration.Observe(time.Since(start).Seconds())
	m.RenderParts.Observe(float64(parts))
	m.RendersCompleted.Inc()
}
