package transport

import (
	"net/http"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics exposes the engine's tick-processing behavior to Prometheus: the
// reference service declares client_golang in its go.mod but never serves
// it, so this is a newly wired concern rather than an adapted one.
type metrics struct {
	registry *prometheus.Registry

	tickLatency        *prometheus.HistogramVec
	decisionsByResult  *prometheus.CounterVec
	activePlans        prometheus.Gauge
	principleViolation *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()

	m := &metrics{
		registry: reg,
		tickLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agente",
			Name:      "tick_latency_seconds",
			Help:      "Time to process one ProcessTick call, by decision result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		decisionsByResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agente",
			Name:      "decisions_total",
			Help:      "Count of processed ticks, by decision result (no_violation when no decision was made).",
		}, []string{"result"}),
		activePlans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agente",
			Name:      "active_plans",
			Help:      "Number of plans currently tracked for rollback.",
		}),
		principleViolation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agente",
			Name:      "principle_violations_total",
			Help:      "Count of diagnosed violations, by principle id.",
		}, []string{"principle_id"}),
	}

	reg.MustRegister(m.tickLatency, m.decisionsByResult, m.activePlans, m.principleViolation)
	return m
}

func (m *metrics) handler() http.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return h.ServeHTTP
}

func (m *metrics) observeTick(d time.Duration, result types.DecisionResult) {
	label := string(result)
	if label == "" {
		label = "no_violation"
	}
	m.tickLatency.WithLabelValues(label).Observe(d.Seconds())
	m.decisionsByResult.WithLabelValues(label).Inc()
}

func (m *metrics) setActivePlans(n int) {
	m.activePlans.Set(float64(n))
}

func (m *metrics) observeDiagnoses(diagnoses []types.Diagnosis) {
	for _, d := range diagnoses {
		m.principleViolation.WithLabelValues(d.PrincipleID).Inc()
	}
}
