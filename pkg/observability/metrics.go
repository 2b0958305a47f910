// Package observability wires Prometheus instrumentation into the resolution
// engine: branch decisions, executor cache outcomes, and end-to-end latency.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Branch labels recorded per recursive resolution step.
const (
	BranchDirect    = "direct"
	BranchReduce    = "reduce"
	BranchComposite = "composite"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so instrumentation stays optional.
type Metrics struct {
	resolutions  *prometheus.CounterVec
	executorRuns *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parcellate",
			Name:      "resolutions_total",
			Help:      "Recursive resolution steps by decision branch.",
		}, []string{"branch"}),
		executorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parcellate",
			Name:      "executor_runs_total",
			Help:      "Executor invocations by cache outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parcellate",
			Name:      "resolve_failures_total",
			Help:      "Top-level resolve calls that returned an error.",
		}, []string{"plugin"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parcellate",
			Name:      "resolve_duration_seconds",
			Help:      "End-to-end latency of top-level resolve calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.resolutions, m.executorRuns, m.failures, m.duration)
	return m
}

// Branch records one recursive step's decision.
func (m *Metrics) Branch(branch string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(branch).Inc()
}

// ExecutorRun records an executor call outcome.
func (m *Metrics) ExecutorRun(wasRun bool) {
	if m == nil {
		return
	}
	outcome := "cached"
	if wasRun {
		outcome = "run"
	}
	m.executorRuns.WithLabelValues(outcome).Inc()
}

// Resolve records the outcome of a top-level resolve call.
func (m *Metrics) Resolve(plugin string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(plugin).Inc()
	}
}
