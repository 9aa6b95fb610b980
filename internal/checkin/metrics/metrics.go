package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes check-in attempts.
type Metrics struct {
	// Attempt outcomes by method and reason ("committed" on success)
	Outcomes *prometheus.CounterVec

	// Latency of a single attempt including the transaction
	AttemptLatency *prometheus.HistogramVec

	// Size of bulk batches
	BulkSize prometheus.Histogram
}

// New registers the check-in metrics on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_checkin_outcomes_total",
			Help: "Check-in attempts by method and outcome",
		}, []string{"method", "outcome"}),

		AttemptLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventdesk_checkin_attempt_duration_seconds",
			Help:    "Duration of a check-in attempt by method",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method"}),

		BulkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventdesk_checkin_bulk_size",
			Help:    "Number of codes submitted per bulk check-in",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

func (m *Metrics) IncrementOutcome(method, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(method, outcome).Inc()
	}
}

func (m *Metrics) ObserveAttemptLatency(method string, d time.Duration) {
	if m != nil {
		m.AttemptLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveBulkSize(n int) {
	if m != nil {
		m.BulkSize.Observe(float64(n))
	}
}
