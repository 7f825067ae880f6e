package workflow_test

import (
	"context"
	"testing"

	"github.com/dukex/autopilot/pkg/actions"
	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/otelhelper"
	"github.com/dukex/autopilot/pkg/persistence/memory"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/dukex/autopilot/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dispatcherEmitter breaks the construction cycle between the action executor and the dispatcher.
type dispatcherEmitter struct {
	dispatcher *workflow.Dispatcher
}

func (d *dispatcherEmitter) Emit(ctx context.Context, event models.TriggerEvent) error {
	return d.dispatcher.Emit(ctx, event)
}

func newChainEngine(t *testing.T, maxDepth int) (*memory.Persistence, *workflow.Dispatcher) {
	t.Helper()

	logger := log.Discard()
	m := metrics.NewNop()
	store := memory.NewPersistence()
	emitter := &dispatcherEmitter{}

	resolver := workflow.NewFieldResolver(store.Contacts(), store.Deals(), logger)
	runner := actions.NewExecutor(store, resolver, emitter, nil, nil, logger)
	processor := workflow.NewProcessor(workflow.NewConditionEvaluator(resolver, logger), runner, otelhelper.NoopTracer(), m, logger)
	executor := workflow.NewExecutor(
		workflow.NewTriggerMatcher(logger),
		workflow.NewWalker(processor, logger),
		workflow.NewRecorder(store.Executions(), nil, m, logger),
		otelhelper.NoopTracer(),
		logger,
	)

	emitter.dispatcher = workflow.NewDispatcher(store.Workflows(), executor, m, logger, 2, maxDepth)

	return store, emitter.dispatcher
}

func TestChain_DealWonTagsContact(t *testing.T) {
	ctx := context.Background()
	store, dispatcher := newChainEngine(t, workflow.DefaultMaxChainDepth)

	contact := testutil.CreateTestContact()
	require.NoError(t, store.Contacts().Save(ctx, contact))

	deal := testutil.CreateTestDeal(contact.ID)
	require.NoError(t, store.Deals().Create(ctx, deal))

	closeDeal := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.ActionNode("won", models.ActionUpdateDeal, map[string]any{
			"deal_id": "{{deal_id}}",
			"stage":   "won",
		})),
		testutil.WithEdges(testutil.Edge("trigger", "won")),
	)

	tagCustomer := testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.TriggerDealStageChanged, map[string]any{"to_stage": "won"}),
		testutil.WithNodes(testutil.ActionNode("tag", models.ActionAddTag, map[string]any{"tag": "customer"})),
		testutil.WithEdges(testutil.Edge("trigger", "tag")),
	)

	for _, wf := range []*models.Workflow{closeDeal, tagCustomer} {
		require.NoError(t, store.Workflows().Save(ctx, wf))
	}

	dispatcher.ExecuteWorkflowsForTrigger(ctx, models.TriggerWebhook, map[string]any{"deal_id": deal.ID}, testutil.TenantID)
	dispatcher.Wait()

	tags, err := store.Contacts().GetTags(ctx, testutil.TenantID, contact.ID)
	require.NoError(t, err)
	assert.Contains(t, tags, "customer")

	runs, err := store.Executions().ListByWorkflow(ctx, tagCustomer.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ExecutionStatusSuccess, runs[0].Status)
	assert.Equal(t, string(models.TriggerDealStageChanged), runs[0].TriggeredBy)
	assert.Equal(t, "qualified", runs[0].TriggerData["from_stage"])
}

func TestChain_StopsAtMaxDepth(t *testing.T) {
	ctx := context.Background()
	store, dispatcher := newChainEngine(t, 3)

	deal := testutil.CreateTestDeal("c-1")
	require.NoError(t, store.Deals().Create(ctx, deal))

	loop := testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.TriggerDealStageChanged, nil),
		testutil.WithNodes(testutil.ActionNode("bump", models.ActionUpdateDeal, map[string]any{
			"deal_id": "{{deal_id}}",
			"stage":   "{{to_stage}}+",
		})),
		testutil.WithEdges(testutil.Edge("trigger", "bump")),
	)
	require.NoError(t, store.Workflows().Save(ctx, loop))

	dispatcher.ExecuteWorkflowsForTrigger(ctx, models.TriggerDealStageChanged,
		map[string]any{"deal_id": deal.ID, "to_stage": "qualified"}, testutil.TenantID)
	dispatcher.Wait()

	runs, err := store.Executions().ListByWorkflow(ctx, loop.ID, 100)
	require.NoError(t, err)
	assert.Len(t, runs, 4)

	stored, err := store.Deals().GetByID(ctx, testutil.TenantID, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "qualified++++", stored.Stage)
}
