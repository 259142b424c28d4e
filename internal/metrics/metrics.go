package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors for query answering and ingestion.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	queries          *prometheus.CounterVec
	toolInvocations  *prometheus.CounterVec
	documentsIndexed *prometheus.CounterVec
	agentSteps       prometheus.Histogram
	answerSeconds    prometheus.Histogram
}

// New creates the collectors and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperagent_queries_total",
			Help: "Queries answered, by outcome.",
		}, []string{"outcome"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperagent_tool_invocations_total",
			Help: "Document tool invocations, by tool kind and outcome.",
		}, []string{"kind", "outcome"}),
		documentsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperagent_documents_indexed_total",
			Help: "Documents processed by the tool builder, by outcome.",
		}, []string{"outcome"}),
		agentSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperagent_agent_steps",
			Help:    "Model round-trips needed to answer a query.",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12},
		}),
		answerSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperagent_answer_seconds",
			Help:    "Wall time spent answering a query.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.toolInvocations, m.documentsIndexed, m.agentSteps, m.answerSeconds)
	}
	return m
}

// ObserveQuery records one finished query.
func (m *Metrics) ObserveQuery(err error, steps int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome(err)).Inc()
	if steps > 0 {
		m.agentSteps.Observe(float64(steps))
	}
	m.answerSeconds.Observe(elapsed.Seconds())
}

// ToolInvoked records one tool call of the given kind.
func (m *Metrics) ToolInvoked(kind string, err error) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(kind, outcome(err)).Inc()
}

// DocumentIndexed records one document build attempt.
func (m *Metrics) DocumentIndexed(err error) {
	if m == nil {
		return
	}
	m.documentsIndexed.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
