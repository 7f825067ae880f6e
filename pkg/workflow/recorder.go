package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autopilot/pkg/eventbus"
	"github.com/dukex/autopilot/pkg/events"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
)

// Recorder persists the WorkflowExecution audit row of each run: created when the run opens,
// updated once when it closes. Lifecycle events are published when a publisher is set.
type Recorder struct {
	executions persistence.ExecutionRepository
	publisher  eventbus.EventPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewRecorder(executions persistence.ExecutionRepository, publisher eventbus.EventPublisher, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{
		executions: executions,
		publisher:  publisher,
		metrics:    m,
		logger:     logger.With("module", "execution_recorder"),
		now:        time.Now,
	}
}

func (r *Recorder) newExecution(workflow *models.Workflow, ectx *models.NodeExecutionContext, status models.ExecutionStatus) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:            ectx.ExecutionID,
		WorkflowID:    workflow.ID,
		Status:        status,
		TriggeredBy:   string(workflow.TriggerType),
		TriggeredByID: ectx.TriggeredByID(),
		TriggerData:   ectx.TriggerData,
		ExecutionData: map[string]any{},
		ExecutedAt:    r.now().UTC(),
	}
}

// Start opens a running execution.
func (r *Recorder) Start(ctx context.Context, workflow *models.Workflow, ectx *models.NodeExecutionContext) (*models.WorkflowExecution, error) {
	execution := r.newExecution(workflow, ectx, models.ExecutionStatusRunning)

	if err := r.executions.Create(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	r.metrics.RunStarted(string(workflow.TriggerType))

	r.publish(ctx, workflow, events.WorkflowExecutionStarted{
		BaseEvent:    events.NewBaseEvent(uuid.NewString(), events.WorkflowExecutionStartedEvent, ectx.TenantID, workflow.ID),
		ExecutionID:  execution.ID,
		WorkflowName: workflow.Name,
		TriggerType:  string(workflow.TriggerType),
		TriggerData:  ectx.TriggerData,
	})

	return execution, nil
}

// Cancel records a run whose trigger filter rejected the event. No node ran.
func (r *Recorder) Cancel(ctx context.Context, workflow *models.Workflow, ectx *models.NodeExecutionContext, reason string) (*models.WorkflowExecution, error) {
	execution := r.newExecution(workflow, ectx, models.ExecutionStatusCancelled)
	message := "Trigger conditions not met: " + reason
	execution.ErrorMessage = &message

	var elapsed int64
	execution.ExecutionTimeMs = &elapsed

	if err := r.executions.Create(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create cancelled execution record: %w", err)
	}

	r.metrics.RunCancelled(string(workflow.TriggerType))

	r.publish(ctx, workflow, events.WorkflowExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(uuid.NewString(), events.WorkflowExecutionCancelledEvent, ectx.TenantID, workflow.ID),
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		Reason:      message,
	})

	return execution, nil
}

// Complete closes a run as success with the accumulated per-node data.
func (r *Recorder) Complete(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, executionData map[string]any) error {
	elapsed := r.close(execution, models.ExecutionStatusSuccess, executionData)

	if err := r.executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("failed to update execution record: %w", err)
	}

	r.metrics.RunFinished(string(workflow.TriggerType), string(execution.Status), elapsed)

	executed, failed := countNodes(executionData)

	r.publish(ctx, workflow, events.WorkflowExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(uuid.NewString(), events.WorkflowExecutionCompletedEvent, workflow.TenantID, workflow.ID),
		ExecutionID:   execution.ID,
		Status:        string(execution.Status),
		DurationMs:    elapsed.Milliseconds(),
		NodesExecuted: executed,
		NodesFailed:   failed,
	})

	return nil
}

// Fail closes a run whose walk raised an error, keeping whatever node data was collected.
func (r *Recorder) Fail(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, runErr error, stack string, executionData map[string]any) error {
	elapsed := r.close(execution, models.ExecutionStatusFailed, executionData)

	message := runErr.Error()
	execution.ErrorMessage = &message

	if stack != "" {
		execution.ErrorStack = &stack
	}

	if err := r.executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("failed to update execution record: %w", err)
	}

	r.metrics.RunFinished(string(workflow.TriggerType), string(execution.Status), elapsed)

	r.publish(ctx, workflow, events.WorkflowExecutionFailed{
		BaseEvent:   events.NewBaseEvent(uuid.NewString(), events.WorkflowExecutionFailedEvent, workflow.TenantID, workflow.ID),
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		DurationMs:  elapsed.Milliseconds(),
		Error:       message,
	})

	return nil
}

func (r *Recorder) close(execution *models.WorkflowExecution, status models.ExecutionStatus, executionData map[string]any) time.Duration {
	elapsed := r.now().Sub(execution.ExecutedAt)
	ms := elapsed.Milliseconds()

	execution.Status = status
	execution.ExecutionTimeMs = &ms

	if executionData != nil {
		execution.ExecutionData = executionData
	}

	return elapsed
}

func (r *Recorder) publish(ctx context.Context, workflow *models.Workflow, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, workflow.ID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish execution lifecycle event",
			"workflow_id", workflow.ID,
			"event_type", event.GetType(),
			"error", err)
	}
}

func countNodes(executionData map[string]any) (int, int) {
	failed := 0

	for _, output := range executionData {
		if m, ok := output.(map[string]any); ok {
			if success, ok := m["success"].(bool); ok && !success {
				failed++
			}
		}
	}

	return len(executionData), failed
}
