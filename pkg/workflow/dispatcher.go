package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/autopilot/pkg/events"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxChainDepth       = 5
	DefaultDispatchConcurrency = 4
)

// WorkflowExecutor runs a single workflow.
type WorkflowExecutor interface {
	ExecuteWorkflow(ctx context.Context, workflow *models.Workflow, triggerData map[string]any, tenantID string, depth int) (*models.WorkflowExecution, error)
}

// Dispatcher is the entry point for trigger events. It runs every enabled workflow of the
// tenant keyed to the event's trigger type, isolating each run from the others.
type Dispatcher struct {
	workflows   persistence.WorkflowRepository
	executor    WorkflowExecutor
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
	maxDepth    int

	inflight sync.WaitGroup
}

func NewDispatcher(workflows persistence.WorkflowRepository, executor WorkflowExecutor, m *metrics.Metrics, logger *slog.Logger, concurrency, maxDepth int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultDispatchConcurrency
	}

	if maxDepth < 0 {
		maxDepth = DefaultMaxChainDepth
	}

	return &Dispatcher{
		workflows:   workflows,
		executor:    executor,
		metrics:     m,
		logger:      logger.With("module", "workflow_dispatcher"),
		concurrency: concurrency,
		maxDepth:    maxDepth,
	}
}

// ExecuteWorkflowsForTrigger runs the matching workflows for an external event and returns
// once they finished. Outcomes are only visible through the execution records.
func (d *Dispatcher) ExecuteWorkflowsForTrigger(ctx context.Context, triggerType models.TriggerType, triggerData map[string]any, tenantID string) {
	err := d.Dispatch(ctx, models.TriggerEvent{Type: triggerType, Data: triggerData, TenantID: tenantID})
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to dispatch trigger event",
			"trigger_type", triggerType,
			"tenant_id", tenantID,
			"error", err)
	}
}

// Dispatch runs the matching workflows for event. It only returns an error when the
// candidate workflows could not be loaded; run failures are logged and isolated.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.TriggerEvent) error {
	logger := d.logger.With(
		"trigger_type", event.Type,
		"tenant_id", event.TenantID,
		"depth", event.Depth,
	)

	if event.Depth > d.maxDepth {
		logger.WarnContext(ctx, "Dropping chained trigger event over the maximum chain depth", "max_depth", d.maxDepth)
		d.metrics.ChainedEventDropped(string(event.Type))

		return nil
	}

	workflows, err := d.workflows.GetAllByTenant(ctx, event.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load workflows for tenant %s: %w", event.TenantID, err)
	}

	candidates := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.Enabled && workflow.TriggerType == event.Type {
			candidates = append(candidates, workflow)
		}
	}

	logger.InfoContext(ctx, "Dispatching trigger event", "candidates", len(candidates))

	group := new(errgroup.Group)
	group.SetLimit(d.concurrency)

	for _, workflow := range candidates {
		group.Go(func() error {
			d.run(ctx, workflow, event, logger)

			return nil
		})
	}

	return group.Wait()
}

func (d *Dispatcher) run(ctx context.Context, workflow *models.Workflow, event models.TriggerEvent, logger *slog.Logger) {
	logger = logger.With("workflow_id", workflow.ID)

	defer func() {
		if r := recover(); r != nil {
			d.metrics.DispatchError()
			logger.ErrorContext(ctx, "Workflow run panicked", "panic", r)
		}
	}()

	_, err := d.executor.ExecuteWorkflow(ctx, workflow, event.Data, event.TenantID, event.Depth)
	if err != nil {
		d.metrics.DispatchError()
		logger.ErrorContext(ctx, "Workflow run failed", "error", err)
	}
}

// Fire dispatches event in the background and returns immediately. The run is detached
// from ctx cancellation.
func (d *Dispatcher) Fire(ctx context.Context, event models.TriggerEvent) {
	ctx = context.WithoutCancel(ctx)

	d.inflight.Add(1)

	go func() {
		defer d.inflight.Done()

		if err := d.Dispatch(ctx, event); err != nil {
			d.logger.ErrorContext(ctx, "Failed to dispatch trigger event",
				"trigger_type", event.Type,
				"tenant_id", event.TenantID,
				"error", err)
		}
	}()
}

// Emit lets actions chain events in-process.
func (d *Dispatcher) Emit(ctx context.Context, event models.TriggerEvent) error {
	d.metrics.ChainedEventEmitted(string(event.Type))
	d.Fire(ctx, event)

	return nil
}

// Wait blocks until every fired dispatch has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// HandleTriggerFired is the event bus handler for chained trigger events.
func (d *Dispatcher) HandleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, events.TriggerFiredEvent)
	}

	return d.Dispatch(ctx, fired.TriggerEvent())
}
