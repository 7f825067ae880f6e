package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs one workflow for one event: trigger gate, audit row, graph walk.
type Executor struct {
	matcher  *TriggerMatcher
	walker   *Walker
	recorder *Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewExecutor(matcher *TriggerMatcher, walker *Walker, recorder *Recorder, tracer trace.Tracer, logger *slog.Logger) *Executor {
	return &Executor{
		matcher:  matcher,
		walker:   walker,
		recorder: recorder,
		tracer:   tracer,
		logger:   logger.With("module", "workflow_executor"),
	}
}

// ExecuteWorkflow runs workflow against the trigger payload. A workflow without exactly one
// trigger node returns an AuthoringError and records nothing. A rejected trigger records a
// cancelled execution. An error escaping the walk marks the execution failed and is returned.
func (e *Executor) ExecuteWorkflow(ctx context.Context, workflow *models.Workflow, triggerData map[string]any, tenantID string, depth int) (*models.WorkflowExecution, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.TriggerTypeKey, string(workflow.TriggerType)),
		attribute.Int(otelhelper.TriggerDepthKey, depth),
	)
	defer span.End()

	plan, err := Compile(workflow)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	ectx := models.NewNodeExecutionContext(workflow, uuid.NewString(), tenantID, triggerData, depth)
	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, ectx.ExecutionID))

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", ectx.ExecutionID,
		"tenant_id", tenantID,
		"trigger_type", workflow.TriggerType,
	)

	if match := e.matcher.Match(workflow, plan.Trigger, ectx.TriggerData); !match.Matched {
		logger.InfoContext(ctx, "Trigger conditions not met, cancelling run", "reason", match.Reason)

		return e.recorder.Cancel(ctx, workflow, ectx, match.Reason)
	}

	execution, err := e.recorder.Start(ctx, workflow, ectx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	logger.InfoContext(ctx, "Workflow run started")

	executionData, stack, runErr := e.walk(ctx, plan, ectx)
	if runErr != nil {
		otelhelper.SetError(span, runErr)
		logger.ErrorContext(ctx, "Workflow run failed", "error", runErr)

		if err := e.recorder.Fail(ctx, workflow, execution, runErr, stack, executionData); err != nil {
			logger.ErrorContext(ctx, "Failed to record failed run", "error", err)
		}

		return execution, runErr
	}

	if err := e.recorder.Complete(ctx, workflow, execution, executionData); err != nil {
		otelhelper.SetError(span, err)

		return execution, err
	}

	logger.InfoContext(ctx, "Workflow run completed", "nodes", len(executionData), "duration_ms", *execution.ExecutionTimeMs)

	return execution, nil
}

// walk converts a panic escaping the walker into an error with its stack trace.
func (e *Executor) walk(ctx context.Context, plan *Plan, ectx *models.NodeExecutionContext) (executionData map[string]any, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow run panicked: %v", r)
			stack = string(debug.Stack())
			executionData = maps.Clone(ectx.PreviousNodeOutputs)
		}
	}()

	executionData, err = e.walker.Walk(ctx, plan, plan.Trigger.ID, ectx)
	if err != nil {
		executionData = maps.Clone(ectx.PreviousNodeOutputs)
	}

	return executionData, "", err
}
