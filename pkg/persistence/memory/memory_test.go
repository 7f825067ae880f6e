package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflows_ScopedByTenant(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	require.NoError(t, store.Workflows().Save(ctx, &models.Workflow{ID: "wf-1", TenantID: "t1", Name: "a"}))
	require.NoError(t, store.Workflows().Save(ctx, &models.Workflow{ID: "wf-2", TenantID: "t2", Name: "b"}))

	workflows, err := store.Workflows().GetAllByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "wf-1", workflows[0].ID)

	_, err = store.Workflows().GetByID(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestContacts_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	contact := &models.Contact{ID: "c1", TenantID: "t1", FirstName: "Ada", Tags: []string{"lead"}}
	require.NoError(t, store.Contacts().Save(ctx, contact))

	_, err := store.Contacts().GetByID(ctx, "t2", "c1")
	require.ErrorIs(t, err, persistence.ErrContactNotFound)

	got, err := store.Contacts().GetByID(ctx, "t1", "c1")
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	tags, err := store.Contacts().GetTags(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lead"}, tags, "stored values are not aliased")
}

func TestContacts_Update(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()
	require.NoError(t, store.Contacts().Save(ctx, &models.Contact{ID: "c1", TenantID: "t1"}))

	err := store.Contacts().Update(ctx, "t1", "c1", models.ContactUpdate{
		Fields:   map[string]string{"email": "ada@example.com"},
		Metadata: map[string]any{"plan": "pro"},
	})
	require.NoError(t, err)

	err = store.Contacts().Update(ctx, "t1", "c1", models.ContactUpdate{Fields: map[string]string{"tenant_id": "t2"}})
	require.ErrorIs(t, err, persistence.ErrInvalidField)

	contact, err := store.Contacts().GetByID(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", contact.Email)
	assert.Equal(t, "pro", contact.Metadata["plan"])
	assert.Equal(t, "t1", contact.TenantID)
}

func TestDeals_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()

	deal := &models.Deal{TenantID: "t1", ContactID: "c1", Title: "Deal", Stage: "qualified"}
	require.NoError(t, store.Deals().Create(ctx, deal))
	require.NotEmpty(t, deal.ID)

	stage := "proposal"
	value := 2500.0
	require.NoError(t, store.Deals().Update(ctx, "t1", deal.ID, models.DealUpdate{Stage: &stage, Value: &value}))

	got, err := store.Deals().GetByID(ctx, "t1", deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "proposal", got.Stage)
	assert.InDelta(t, 2500.0, got.Value, 0.001)

	err = store.Deals().Update(ctx, "t2", deal.ID, models.DealUpdate{Stage: &stage})
	assert.ErrorIs(t, err, persistence.ErrDealNotFound)
}

func TestExecutions_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()
	now := time.Now()

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, store.Executions().Create(ctx, &models.WorkflowExecution{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusRunning,
			ExecutedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	executions, err := store.Executions().ListByWorkflow(ctx, "wf-1", 2)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e3", executions[0].ID)
	assert.Equal(t, "e2", executions[1].ID)

	err = store.Executions().Update(ctx, &models.WorkflowExecution{ID: "missing"})
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestUsers_GetByEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence()
	require.NoError(t, store.Users().Save(ctx, &models.User{ID: "u1", TenantID: "t1", Email: "Owner@Example.com"}))

	user, err := store.Users().GetByEmail(ctx, "t1", "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = store.Users().GetByEmail(ctx, "t2", "owner@example.com")
	assert.ErrorIs(t, err, persistence.ErrUserNotFound)
}
