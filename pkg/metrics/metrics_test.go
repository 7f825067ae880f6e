package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the first series of the named family whose labels include want.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}

			matched := true
			for k, v := range want {
				if labels[k] != v {
					matched = false
				}
			}

			if !matched {
				continue
			}

			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	t.Fatalf("series %s %v not found", name, want)

	return 0
}

func TestMetrics_RunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunStarted("deal_created")
	assert.InDelta(t, 1, sample(t, reg, "autopilot_active_workflow_runs", nil), 0)

	m.RunFinished("deal_created", "success", 20*time.Millisecond)
	assert.InDelta(t, 0, sample(t, reg, "autopilot_active_workflow_runs", nil), 0)
	assert.InDelta(t, 1, sample(t, reg, "autopilot_workflow_runs_total",
		map[string]string{"trigger_type": "deal_created", "status": "success"}), 0)
	assert.InDelta(t, 1, sample(t, reg, "autopilot_workflow_run_duration_seconds",
		map[string]string{"trigger_type": "deal_created"}), 0)

	m.RunCancelled("deal_created")
	assert.InDelta(t, 1, sample(t, reg, "autopilot_workflow_runs_total",
		map[string]string{"trigger_type": "deal_created", "status": "cancelled"}), 0)
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.NodeProcessed("action", false)
	m.NodeProcessed("action", true)
	m.ChainedEventDropped("deal_stage_changed")
	m.ChainedEventEmitted("deal_created")
	m.DispatchError()

	assert.InDelta(t, 1, sample(t, reg, "autopilot_node_results_total",
		map[string]string{"kind": "action", "outcome": "failure"}), 0)
	assert.InDelta(t, 1, sample(t, reg, "autopilot_chained_events_dropped_total",
		map[string]string{"trigger_type": "deal_stage_changed"}), 0)
	assert.InDelta(t, 1, sample(t, reg, "autopilot_chained_events_emitted_total",
		map[string]string{"trigger_type": "deal_created"}), 0)
	assert.InDelta(t, 1, sample(t, reg, "autopilot_dispatch_errors_total", nil), 0)
}

func TestNewNop_IsIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
