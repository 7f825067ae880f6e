package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/mocks"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFieldResolver_ResolutionOrder(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	contact := testutil.CreateTestContact(func(c *models.Contact) { c.Metadata = map[string]any{"tier": "gold"} })
	require.NoError(t, e.store.Contacts().Save(ctx, contact))

	deal := testutil.CreateTestDeal(contact.ID)
	require.NoError(t, e.store.Deals().Create(ctx, deal))

	workflow := testutil.CreateTestWorkflow()
	ectx := newRunContext(workflow, map[string]any{
		"contact_id":      contact.ID,
		"deal_id":         deal.ID,
		"conversation_id": "conv-1",
		"message":         "hello",
		"nested":          map[string]any{"items": []any{"a", "b"}},
		"empty":           nil,
	})
	ectx.PreviousNodeOutputs["node-1"] = map[string]any{"result": true}

	tests := []struct {
		field   string
		want    any
		defined bool
	}{
		{"contactId", contact.ID, true},
		{"conversationId", "conv-1", true},
		{"tenantId", testutil.TenantID, true},
		{"triggerData.message", "hello", true},
		{"message", "hello", true},
		{"triggerData.nested.items.1", "b", true},
		{"empty", nil, true},
		{"contact.email", "ada@example.com", true},
		{"contact.name", "Ada Lovelace", true},
		{"contact.metadata.tier", "gold", true},
		{"contact.unknown", nil, false},
		{"deal.stage", "qualified", true},
		{"deal.value", 1000.0, true},
		{"conversation.id", "conv-1", true},
		{"conversation.title", nil, false},
		{"previousNodeOutputs.node-1.result", true, true},
		{"triggerData.missing", nil, false},
		{"unknown.path", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			value, ok := e.resolver.Resolve(ctx, tt.field, ectx)
			assert.Equal(t, tt.defined, ok)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestFieldResolver_CachesContactPerRun(t *testing.T) {
	contacts := &mocks.MockContactRepository{}
	contact := testutil.CreateTestContact()

	contacts.On("GetByID", mock.Anything, testutil.TenantID, contact.ID).Return(contact, nil).Once()

	resolver := NewFieldResolver(contacts, nil, log.Discard())
	ectx := newRunContext(testutil.CreateTestWorkflow(), map[string]any{"contact_id": contact.ID})

	for range 3 {
		value, ok := resolver.Resolve(context.Background(), "contact.first_name", ectx)
		require.True(t, ok)
		assert.Equal(t, "Ada", value)
	}

	contacts.AssertExpectations(t)

	ectx.Cache.InvalidateContact(contact.ID)
	contacts.On("GetByID", mock.Anything, testutil.TenantID, contact.ID).Return(contact, nil).Once()

	_, ok := resolver.Resolve(context.Background(), "contact.last_name", ectx)
	assert.True(t, ok)
	contacts.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestFieldResolver_StoreErrorResolvesUndefined(t *testing.T) {
	contacts := &mocks.MockContactRepository{}
	contacts.On("GetByID", mock.Anything, testutil.TenantID, "c-1").Return(nil, errors.New("connection reset"))

	resolver := NewFieldResolver(contacts, nil, log.Discard())
	ectx := newRunContext(testutil.CreateTestWorkflow(), map[string]any{"contact_id": "c-1"})

	value, ok := resolver.Resolve(context.Background(), "contact.email", ectx)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestFieldResolver_NoContactInRun(t *testing.T) {
	contacts := &mocks.MockContactRepository{}
	resolver := NewFieldResolver(contacts, nil, log.Discard())

	_, ok := resolver.Resolve(context.Background(), "contact.email", newRunContext(testutil.CreateTestWorkflow(), nil))
	assert.False(t, ok)
	contacts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestFieldResolver_Lookup(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	contact := testutil.CreateTestContact()
	require.NoError(t, e.store.Contacts().Save(ctx, contact))

	ectx := newRunContext(testutil.CreateTestWorkflow(), map[string]any{"contact_id": contact.ID})
	lookup := e.resolver.Lookup(ctx, ectx)

	value, ok := lookup("contact.name")
	assert.True(t, ok)
	assert.Equal(t, "Ada Lovelace", value)
}
