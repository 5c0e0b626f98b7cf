// Package metrics exposes Prometheus instruments for the orchestration loop.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// Metrics holds all Prometheus metrics for the orchestrator.
// A nil *Metrics accepts every Observe call and records nothing.
type Metrics struct {
	Iterations        prometheus.Counter
	Decisions         *prometheus.CounterVec
	Verifications     *prometheus.CounterVec
	VerificationScore prometheus.Histogram
	Corrections       *prometheus.CounterVec
	AgentCallDuration *prometheus.HistogramVec
	Checks            *prometheus.CounterVec
	Sessions          *prometheus.CounterVec

	// Errors by structured error code
	Errors *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered on registry
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Iterations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aiorch_iterations_total",
				Help: "Total number of orchestration iterations started",
			},
		),
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiorch_decisions_total",
				Help: "Master decisions by type",
			},
			[]string{"type"},
		),
		Verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiorch_verifications_total",
				Help: "Verification outcomes by verifying role",
			},
			[]string{"role", "passed"},
		),
		VerificationScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aiorch_verification_score",
				Help:    "Distribution of verification scores",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),
		Corrections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiorch_corrections_total",
				Help: "Correction sub-loop outcomes",
			},
			[]string{"outcome"},
		),
		AgentCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aiorch_agent_call_duration_seconds",
				Help:    "Agent invocation latency in seconds",
				Buckets: []float64{1.0, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0, 600.0},
			},
			[]string{"role"},
		),
		Checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiorch_checks_total",
				Help: "Verification engine checker results",
			},
			[]string{"checker", "passed"},
		),
		Sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiorch_sessions_total",
				Help: "Finished runs by final state",
			},
			[]string{"state"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiorch_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

func (m *Metrics) ObserveIteration() {
	if m == nil {
		return
	}
	m.Iterations.Inc()
}

func (m *Metrics) ObserveDecision(decisionType string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decisionType).Inc()
}

// ObserveVerification counts a verdict and records its score
func (m *Metrics) ObserveVerification(role string, passed bool, score float64) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(role, strconv.FormatBool(passed)).Inc()
	m.VerificationScore.Observe(score)
}

func (m *Metrics) ObserveCorrection(outcome string) {
	if m == nil {
		return
	}
	m.Corrections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAgentCall(role string, d time.Duration) {
	if m == nil {
		return
	}
	m.AgentCallDuration.WithLabelValues(role).Observe(d.Seconds())
}

func (m *Metrics) ObserveCheck(checker string, passed bool) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(checker, strconv.FormatBool(passed)).Inc()
}

func (m *Metrics) ObserveSession(state string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(state).Inc()
}

// ObserveError counts err under its error code, or "unknown" for plain errors
func (m *Metrics) ObserveError(component string, err error) {
	if m == nil || err == nil {
		return
	}
	code := "unknown"
	if oe, ok := errors.As(err); ok {
		code = string(oe.Code)
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
