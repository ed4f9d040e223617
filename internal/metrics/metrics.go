package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for delegation evaluations.
type Metrics struct {
	registry *prometheus.Registry

	// Resolved approval level by request source
	LevelOutcome *prometheus.CounterVec

	// Escalation rules that fired
	RuleHits *prometheus.CounterVec

	// Engine evaluation latency
	EvaluateLatency prometheus.Histogram

	// Journal write failures
	JournalErrors prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		LevelOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "delegation_level_outcomes_total",
			Help: "Total evaluations by resolved approval level and source",
		}, []string{"level", "source"}), // source: "api", "batch", "stream"

		RuleHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "delegation_rule_hits_total",
			Help: "Total escalation rule matches by rule id",
		}, []string{"rule"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "delegation_evaluate_duration_seconds",
			Help:    "Duration of a single engine evaluation",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),

		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "delegation_journal_errors_total",
			Help: "Total failed writes to the evaluation journal",
		}),
	}
}

// ObserveEvaluation records the outcome of one evaluation.
func (m *Metrics) ObserveEvaluation(level, source string, rules []string, d time.Duration) {
	if m == nil {
		return
	}
	m.LevelOutcome.WithLabelValues(level, source).Inc()
	for _, rule := range rules {
		m.RuleHits.WithLabelValues(rule).Inc()
	}
	m.EvaluateLatency.Observe(d.Seconds())
}

// IncrementJournalErrors records a failed journal write.
func (m *Metrics) IncrementJournalErrors() {
	if m != nil {
		m.JournalErrors.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
