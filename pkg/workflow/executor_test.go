package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/otelhelper"
	"github.com/dukex/autopilot/pkg/persistence/memory"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_SuccessfulRun(t *testing.T) {
	e := newEngine(t, nil)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(tagNode("tag", "vip")),
		testutil.WithEdges(testutil.Edge("trigger", "tag")),
	)
	e.save(t, workflow)

	execution, err := e.executor.ExecuteWorkflow(context.Background(), workflow,
		map[string]any{"contact_id": "c-1", "message_id": "m-1"}, testutil.TenantID, 0)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.Equal(t, string(models.TriggerWebhook), execution.TriggeredBy)
	require.NotNil(t, execution.TriggeredByID)
	assert.Equal(t, "m-1", *execution.TriggeredByID)
	require.NotNil(t, execution.ExecutionTimeMs)
	assert.Nil(t, execution.ErrorMessage)
	assert.Contains(t, execution.ExecutionData, "trigger")
	assert.Contains(t, execution.ExecutionData, "tag")

	stored := e.executions(t, workflow.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, execution.ID, stored[0].ID)
	assert.Equal(t, models.ExecutionStatusSuccess, stored[0].Status)
}

func TestExecutor_FailedNodesStillSucceed(t *testing.T) {
	e := newEngine(t, nil)
	e.actions.fn = failOnTag("boom")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(tagNode("bad", "boom")),
		testutil.WithEdges(testutil.Edge("trigger", "bad")),
	)

	execution, err := e.executor.ExecuteWorkflow(context.Background(), workflow, nil, testutil.TenantID, 0)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.Equal(t, map[string]any{"success": false, "error": "boom failed"}, execution.ExecutionData["bad"])
}

func TestExecutor_RejectedTriggerIsCancelled(t *testing.T) {
	e := newEngine(t, nil)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.TriggerPurchaseIntent, map[string]any{"confidence_threshold": 0.8}),
		testutil.WithNodes(tagNode("tag", "buyer")),
		testutil.WithEdges(testutil.Edge("trigger", "tag")),
	)

	execution, err := e.executor.ExecuteWorkflow(context.Background(), workflow,
		map[string]any{"confidence": 0.75}, testutil.TenantID, 0)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
	require.NotNil(t, execution.ErrorMessage)
	assert.True(t, strings.HasPrefix(*execution.ErrorMessage, "Trigger conditions not met: "))
	require.NotNil(t, execution.ExecutionTimeMs)
	assert.Zero(t, *execution.ExecutionTimeMs)
	assert.Empty(t, execution.ExecutionData)
	assert.Zero(t, e.actions.count())

	stored := e.executions(t, workflow.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, models.ExecutionStatusCancelled, stored[0].Status)
}

func TestExecutor_MissingTriggerRecordsNothing(t *testing.T) {
	e := newEngine(t, nil)

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.Nodes = []*models.WorkflowNode{tagNode("tag", "vip")}
	})

	execution, err := e.executor.ExecuteWorkflow(context.Background(), workflow, nil, testutil.TenantID, 0)
	require.Error(t, err)
	assert.Nil(t, execution)
	assert.ErrorIs(t, err, ErrTriggerNodeMissing)
	assert.Empty(t, e.executions(t, workflow.ID))
}

type panickingProcessor struct{}

func (panickingProcessor) Process(context.Context, *CompiledNode, *models.NodeExecutionContext) models.NodeExecutionResult {
	panic("graph corrupted")
}

func TestExecutor_PanicMarksRunFailed(t *testing.T) {
	logger := log.Discard()
	store := memory.NewPersistence()

	executor := NewExecutor(
		NewTriggerMatcher(logger),
		NewWalker(panickingProcessor{}, logger),
		NewRecorder(store.Executions(), nil, metrics.NewNop(), logger),
		otelhelper.NoopTracer(),
		logger,
	)

	workflow := testutil.CreateTestWorkflow()

	execution, err := executor.ExecuteWorkflow(context.Background(), workflow, nil, testutil.TenantID, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph corrupted")

	require.NotNil(t, execution)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.NotNil(t, execution.ErrorMessage)
	assert.Contains(t, *execution.ErrorMessage, "graph corrupted")
	require.NotNil(t, execution.ErrorStack)
	assert.NotEmpty(t, *execution.ErrorStack)

	stored, err := store.Executions().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
}
