package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/otelhelper"
	"github.com/dukex/autopilot/pkg/persistence/memory"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/stretchr/testify/require"
)

// stubActions records action calls and answers with fn, or success when fn is nil.
type stubActions struct {
	mu    sync.Mutex
	calls []models.ActionConfig
	fn    func(config models.ActionConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error)
}

func (s *stubActions) Execute(_ context.Context, config models.ActionConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, config)
	s.mu.Unlock()

	if s.fn != nil {
		return s.fn(config, ectx)
	}

	return models.Succeeded(map[string]any{"action": string(config.ActionType())}), nil
}

func (s *stubActions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.calls)
}

type engine struct {
	store      *memory.Persistence
	actions    *stubActions
	resolver   *FieldResolver
	processor  *Processor
	walker     *Walker
	executor   *Executor
	dispatcher *Dispatcher
}

func newEngine(t *testing.T, runner ActionRunner) *engine {
	t.Helper()

	logger := log.Discard()
	m := metrics.NewNop()
	store := memory.NewPersistence()

	e := &engine{store: store}

	if runner == nil {
		e.actions = &stubActions{}
		runner = e.actions
	}

	e.resolver = NewFieldResolver(store.Contacts(), store.Deals(), logger)
	e.processor = NewProcessor(NewConditionEvaluator(e.resolver, logger), runner, otelhelper.NoopTracer(), m, logger)
	e.walker = NewWalker(e.processor, logger)
	e.executor = NewExecutor(
		NewTriggerMatcher(logger),
		e.walker,
		NewRecorder(store.Executions(), nil, m, logger),
		otelhelper.NoopTracer(),
		logger,
	)
	e.dispatcher = NewDispatcher(store.Workflows(), e.executor, m, logger, 2, DefaultMaxChainDepth)

	return e
}

func (e *engine) save(t *testing.T, workflows ...*models.Workflow) {
	t.Helper()

	for _, workflow := range workflows {
		require.NoError(t, e.store.Workflows().Save(context.Background(), workflow))
	}
}

func (e *engine) executions(t *testing.T, workflowID string) []*models.WorkflowExecution {
	t.Helper()

	executions, err := e.store.Executions().ListByWorkflow(context.Background(), workflowID, 100)
	require.NoError(t, err)

	return executions
}

func newRunContext(workflow *models.Workflow, triggerData map[string]any) *models.NodeExecutionContext {
	return models.NewNodeExecutionContext(workflow, "exec-test", testutil.TenantID, triggerData, 0)
}
