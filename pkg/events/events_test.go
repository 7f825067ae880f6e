package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerFired_JSON(t *testing.T) {
	original := TriggerFired{
		BaseEvent:   NewBaseEvent("evt-1", TriggerFiredEvent, "tenant-1", "wf-1"),
		TriggerType: models.TriggerDealStageChanged,
		TriggerData: map[string]any{"from_stage": "qualified", "to_stage": "proposal"},
		Depth:       2,
		ExecutionID: "exec-1",
	}

	payload, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"trigger_type":"deal_stage_changed"`)
	assert.Contains(t, string(payload), `"tenant_id":"tenant-1"`)

	var decoded TriggerFired
	require.NoError(t, json.Unmarshal(payload, &decoded))

	event := decoded.TriggerEvent()
	assert.Equal(t, models.TriggerDealStageChanged, event.Type)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, 2, event.Depth)
	assert.Equal(t, "proposal", event.Data["to_stage"])
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.Equal(t, "exec-1", event.ExecutionID)
	assert.Equal(t, TriggerFiredEvent, decoded.GetType())
}

func TestLifecycleEventTypes(t *testing.T) {
	assert.Equal(t, WorkflowExecutionStartedEvent, WorkflowExecutionStarted{}.GetType())
	assert.Equal(t, WorkflowExecutionCompletedEvent, WorkflowExecutionCompleted{}.GetType())
	assert.Equal(t, WorkflowExecutionFailedEvent, WorkflowExecutionFailed{}.GetType())
	assert.Equal(t, WorkflowExecutionCancelledEvent, WorkflowExecutionCancelled{}.GetType())
}
