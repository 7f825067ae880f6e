// Package metrics holds the Prometheus collectors of the workflow engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	runsStarted    *prometheus.CounterVec
	runsFinished   *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	activeRuns     prometheus.Gauge
	nodeResults    *prometheus.CounterVec
	droppedEvents  *prometheus.CounterVec
	emittedEvents  *prometheus.CounterVec
	dispatchErrors prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_workflow_runs_started_total",
			Help: "Workflow runs opened, by trigger type",
		}, []string{"trigger_type"}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_workflow_runs_total",
			Help: "Workflow runs closed, by trigger type and final status",
		}, []string{"trigger_type", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autopilot_workflow_run_duration_seconds",
			Help:    "Workflow run duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger_type"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autopilot_active_workflow_runs",
			Help: "Workflow runs in progress",
		}),
		nodeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_node_results_total",
			Help: "Processed nodes, by node kind and outcome",
		}, []string{"kind", "outcome"}),
		droppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_chained_events_dropped_total",
			Help: "Chained trigger events dropped by the depth guard",
		}, []string{"trigger_type"}),
		emittedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autopilot_chained_events_emitted_total",
			Help: "Chained trigger events emitted by actions",
		}, []string{"trigger_type"}),
		dispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autopilot_dispatch_errors_total",
			Help: "Workflow runs that ended with an error isolated by the dispatcher",
		}),
	}

	reg.MustRegister(
		m.runsStarted, m.runsFinished, m.runDuration, m.activeRuns,
		m.nodeResults, m.droppedEvents, m.emittedEvents, m.dispatchErrors,
	)

	return m
}

// NewNop returns metrics registered on a private registry, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) RunStarted(triggerType string) {
	m.runsStarted.WithLabelValues(triggerType).Inc()
	m.activeRuns.Inc()
}

func (m *Metrics) RunFinished(triggerType, status string, elapsed time.Duration) {
	m.activeRuns.Dec()
	m.runsFinished.WithLabelValues(triggerType, status).Inc()
	m.runDuration.WithLabelValues(triggerType).Observe(elapsed.Seconds())
}

// RunCancelled counts a run rejected by its trigger filter; it was never active.
func (m *Metrics) RunCancelled(triggerType string) {
	m.runsFinished.WithLabelValues(triggerType, "cancelled").Inc()
}

func (m *Metrics) NodeProcessed(kind string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}

	m.nodeResults.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ChainedEventDropped(triggerType string) {
	m.droppedEvents.WithLabelValues(triggerType).Inc()
}

func (m *Metrics) ChainedEventEmitted(triggerType string) {
	m.emittedEvents.WithLabelValues(triggerType).Inc()
}

func (m *Metrics) DispatchError() {
	m.dispatchErrors.Inc()
}
