package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/autopilot/pkg/events"
	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/mocks"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(executions *mocks.MockExecutionRepository, bus *mocks.MockEventBus) *Recorder {
	recorder := NewRecorder(executions, bus, metrics.NewNop(), log.Discard())

	clock := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)

		return clock
	}

	return recorder
}

func TestRecorder_StartAndComplete(t *testing.T) {
	ctx := context.Background()
	wf := testutil.CreateTestWorkflow()
	ectx := newRunContext(wf, map[string]any{"contact_id": "c-1"})

	executions := new(mocks.MockExecutionRepository)
	bus := new(mocks.MockEventBus)

	executions.On("Create", ctx, mock.MatchedBy(func(e *models.WorkflowExecution) bool {
		return e.Status == models.ExecutionStatusRunning && e.ID == "exec-test"
	})).Return(nil).Once()
	executions.On("Update", ctx, mock.AnythingOfType("*models.WorkflowExecution")).Return(nil).Once()

	bus.On("Publish", ctx, wf.ID, mock.AnythingOfType("events.WorkflowExecutionStarted")).Return(nil).Once()
	bus.On("Publish", ctx, wf.ID, mock.MatchedBy(func(e events.WorkflowExecutionCompleted) bool {
		return e.NodesExecuted == 2 && e.NodesFailed == 1 && e.DurationMs == 250
	})).Return(nil).Once()

	recorder := newTestRecorder(executions, bus)

	execution, err := recorder.Start(ctx, wf, ectx)
	require.NoError(t, err)

	err = recorder.Complete(ctx, wf, execution, map[string]any{
		"trigger": map[string]any{"success": true},
		"tag":     map[string]any{"success": false, "error": "contact not found"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	require.NotNil(t, execution.ExecutionTimeMs)
	assert.Equal(t, int64(250), *execution.ExecutionTimeMs)

	executions.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestRecorder_StartStoreError(t *testing.T) {
	ctx := context.Background()
	wf := testutil.CreateTestWorkflow()

	executions := new(mocks.MockExecutionRepository)
	executions.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	bus := new(mocks.MockEventBus)

	_, err := newTestRecorder(executions, bus).Start(ctx, wf, newRunContext(wf, nil))
	require.ErrorContains(t, err, "failed to create execution record")

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecorder_FailKeepsStack(t *testing.T) {
	ctx := context.Background()
	wf := testutil.CreateTestWorkflow()

	executions := new(mocks.MockExecutionRepository)
	executions.On("Create", ctx, mock.Anything).Return(nil)
	executions.On("Update", ctx, mock.Anything).Return(nil)

	bus := new(mocks.MockEventBus)
	bus.On("Publish", ctx, wf.ID, mock.Anything).Return(errors.New("broker down"))

	recorder := newTestRecorder(executions, bus)

	execution, err := recorder.Start(ctx, wf, newRunContext(wf, nil))
	require.NoError(t, err)

	require.NoError(t, recorder.Fail(ctx, wf, execution, errors.New("boom"), "goroutine 1 [running]", nil))

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.NotNil(t, execution.ErrorMessage)
	assert.Equal(t, "boom", *execution.ErrorMessage)
	require.NotNil(t, execution.ErrorStack)
	assert.Equal(t, map[string]any{}, execution.ExecutionData)
}

func TestRecorder_CancelWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	wf := testutil.CreateTestWorkflow()

	executions := new(mocks.MockExecutionRepository)
	executions.On("Create", ctx, mock.Anything).Return(nil).Once()

	recorder := NewRecorder(executions, nil, metrics.NewNop(), log.Discard())

	execution, err := recorder.Cancel(ctx, wf, newRunContext(wf, nil), "stage mismatch")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
	assert.Equal(t, "Trigger conditions not met: stage mismatch", *execution.ErrorMessage)
	assert.Equal(t, int64(0), *execution.ExecutionTimeMs)
	executions.AssertExpectations(t)
}
