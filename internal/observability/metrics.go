package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for risk passes.
type Metrics struct {
	PassesTotal       *prometheus.CounterVec // labels: outcome={success,failed}
	PassDuration      prometheus.Histogram
	LocationsAssessed *prometheus.CounterVec // labels: level={low,medium,high}
	LocationsSkipped  prometheus.Counter
	Notifications     *prometheus.CounterVec // labels: outcome={sent,failed}
	PublishErrors     prometheus.Counter
	LastRiskScore     *prometheus.GaugeVec // labels: kebele
}

func newMetrics() *Metrics {
	return &Metrics{
		PassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskwatch",
			Name:      "passes_total",
			Help:      "Completed assessment passes by outcome.",
		}, []string{"outcome"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskwatch",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a complete assessment pass.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LocationsAssessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskwatch",
			Name:      "locations_assessed_total",
			Help:      "Kebeles assessed by resulting risk level.",
		}, []string{"level"}),
		LocationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskwatch",
			Name:      "locations_skipped_total",
			Help:      "Kebeles skipped because a signal fetch failed.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskwatch",
			Name:      "notifications_total",
			Help:      "Farmer notifications by outcome.",
		}, []string{"outcome"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskwatch",
			Name:      "publish_errors_total",
			Help:      "Assessments that could not be published to the stream.",
		}),
		LastRiskScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "riskwatch",
			Name:      "risk_score",
			Help:      "Most recent composite risk score per kebele.",
		}, []string{"kebele"}),
	}
}

// NewMetrics creates and registers all pass metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PassesTotal,
		m.PassDuration,
		m.LocationsAssessed,
		m.LocationsSkipped,
		m.Notifications,
		m.PublishErrors,
		m.LastRiskScore,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
