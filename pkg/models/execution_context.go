package models

import "github.com/spf13/cast"

// NodeExecutionContext is the mutable state of one workflow run. It is owned by a single
// run and must not be shared across runs or goroutines.
type NodeExecutionContext struct {
	Workflow            *Workflow
	ExecutionID         string
	TenantID            string
	TriggerData         map[string]any
	PreviousNodeOutputs map[string]any

	ConversationID string
	ContactID      string
	DealID         string
	MessageID      string
	AgentID        string

	// Depth is the chain depth of the event that started the run.
	Depth int
	Cache *ResolutionCache
}

// NewNodeExecutionContext builds a fresh run context, lifting well-known ids out of the
// trigger payload.
func NewNodeExecutionContext(workflow *Workflow, executionID, tenantID string, triggerData map[string]any, depth int) *NodeExecutionContext {
	if triggerData == nil {
		triggerData = map[string]any{}
	}

	return &NodeExecutionContext{
		Workflow:            workflow,
		ExecutionID:         executionID,
		TenantID:            tenantID,
		TriggerData:         triggerData,
		PreviousNodeOutputs: map[string]any{},
		ConversationID:      firstString(triggerData, "conversation_id", "conversationId"),
		ContactID:           firstString(triggerData, "contact_id", "contactId"),
		DealID:              firstString(triggerData, "deal_id", "dealId"),
		MessageID:           firstString(triggerData, "message_id", "messageId"),
		AgentID:             firstString(triggerData, "agent_id", "agentId"),
		Depth:               depth,
		Cache:               NewResolutionCache(),
	}
}

// Attribute returns a denormalized run attribute by its exact name. Unset attributes
// are reported as missing.
func (c *NodeExecutionContext) Attribute(name string) (string, bool) {
	var value string

	switch name {
	case "conversationId", "conversation_id":
		value = c.ConversationID
	case "contactId", "contact_id":
		value = c.ContactID
	case "dealId", "deal_id":
		value = c.DealID
	case "messageId", "message_id":
		value = c.MessageID
	case "agentId", "agent_id":
		value = c.AgentID
	case "tenantId", "tenant_id":
		value = c.TenantID
	case "executionId", "execution_id":
		value = c.ExecutionID
	case "workflowId", "workflow_id":
		if c.Workflow != nil {
			value = c.Workflow.ID
		}
	default:
		return "", false
	}

	return value, value != ""
}

// Snapshot is the object dotted paths fall back to:
// the run attributes plus triggerData and previousNodeOutputs.
func (c *NodeExecutionContext) Snapshot() map[string]any {
	snapshot := map[string]any{
		"triggerData":         c.TriggerData,
		"previousNodeOutputs": c.PreviousNodeOutputs,
	}

	for _, name := range []string{"conversationId", "contactId", "dealId", "messageId", "agentId", "tenantId", "executionId", "workflowId"} {
		if value, ok := c.Attribute(name); ok {
			snapshot[name] = value
		}
	}

	return snapshot
}

// TriggeredByID is the most specific id the trigger payload carried.
func (c *NodeExecutionContext) TriggeredByID() *string {
	for _, id := range []string{c.MessageID, c.DealID, c.ContactID, c.ConversationID} {
		if id != "" {
			return &id
		}
	}

	return nil
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := data[key]; ok && value != nil {
			if s := cast.ToString(value); s != "" {
				return s
			}
		}
	}

	return ""
}

// ResolutionCache memoizes contacts and deals fetched during one run.
type ResolutionCache struct {
	contacts map[string]*Contact
	deals    map[string]*Deal
}

func NewResolutionCache() *ResolutionCache {
	return &ResolutionCache{
		contacts: make(map[string]*Contact),
		deals:    make(map[string]*Deal),
	}
}

func (c *ResolutionCache) Contact(id string) (*Contact, bool) {
	contact, ok := c.contacts[id]

	return contact, ok
}

func (c *ResolutionCache) PutContact(contact *Contact) {
	c.contacts[contact.ID] = contact
}

func (c *ResolutionCache) InvalidateContact(id string) {
	delete(c.contacts, id)
}

func (c *ResolutionCache) Deal(id string) (*Deal, bool) {
	deal, ok := c.deals[id]

	return deal, ok
}

func (c *ResolutionCache) PutDeal(deal *Deal) {
	c.deals[deal.ID] = deal
}

func (c *ResolutionCache) InvalidateDeal(id string) {
	delete(c.deals, id)
}
