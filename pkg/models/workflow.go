// Package models defines the domain models of the workflow engine: workflow graphs, typed node
// configurations, execution records and the CRM entities actions operate on.
package models

import "time"

// TriggerType is the event class that starts a workflow run.
type TriggerType string

const (
	TriggerPurchaseIntent      TriggerType = "purchase_intent"
	TriggerConversationStarted TriggerType = "conversation_started"
	TriggerConversationEnded   TriggerType = "conversation_ended"
	TriggerContactCreated      TriggerType = "contact_created"
	TriggerContactUpdated      TriggerType = "contact_updated"
	TriggerDealCreated         TriggerType = "deal_created"
	TriggerDealStageChanged    TriggerType = "deal_stage_changed"
	TriggerMessageReceived     TriggerType = "message_received"
	TriggerWebhook             TriggerType = "webhook"
)

// TriggerTypes lists every trigger type the engine knows how to filter.
var TriggerTypes = []TriggerType{
	TriggerPurchaseIntent,
	TriggerConversationStarted,
	TriggerConversationEnded,
	TriggerContactCreated,
	TriggerContactUpdated,
	TriggerDealCreated,
	TriggerDealStageChanged,
	TriggerMessageReceived,
	TriggerWebhook,
}

func (t TriggerType) Valid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Workflow is a tenant-owned automation graph keyed to one trigger type.
// The engine only reads workflows; they are authored by the graph editor.
type Workflow struct {
	ID            string          `json:"id"             validate:"required"`
	TenantID      string          `json:"tenant_id"      validate:"required"`
	Name          string          `json:"name"           validate:"required"`
	Description   string          `json:"description,omitempty"`
	Enabled       bool            `json:"enabled"`
	TriggerType   TriggerType     `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any  `json:"trigger_config"`
	Nodes         []*WorkflowNode `json:"nodes"          validate:"dive"`
	Edges         []*WorkflowEdge `json:"edges"          validate:"dive"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TriggerNodes returns every node of kind trigger, in declaration order.
func (w *Workflow) TriggerNodes() []*WorkflowNode {
	var nodes []*WorkflowNode

	for _, node := range w.Nodes {
		if node.Type == NodeKindTrigger {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TriggerEvent is a business event handed to the dispatcher. Depth counts how many
// workflow runs produced it through chained actions; producers outside the engine use 0.
// WorkflowID and ExecutionID name the run that emitted a chained event.
type TriggerEvent struct {
	Type        TriggerType    `json:"trigger_type"`
	Data        map[string]any `json:"trigger_data"`
	TenantID    string         `json:"tenant_id"`
	Depth       int            `json:"depth"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
}
