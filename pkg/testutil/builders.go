// Package testutil provides test data builders for workflows, graph nodes and CRM entities.
package testutil

import (
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/google/uuid"
)

const TenantID = "tenant-1"

// CreateTestWorkflow creates an enabled webhook workflow with a single trigger node.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:            uuid.NewString(),
		TenantID:      TenantID,
		Name:          "Test Workflow",
		Enabled:       true,
		TriggerType:   models.TriggerWebhook,
		TriggerConfig: map[string]any{},
		Nodes:         []*models.WorkflowNode{TriggerNode("trigger")},
		Edges:         []*models.WorkflowEdge{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

func WithTrigger(triggerType models.TriggerType, config map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TriggerType = triggerType
		w.TriggerConfig = config
	}
}

// WithNodes appends nodes after the trigger node.
func WithNodes(nodes ...*models.WorkflowNode) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, nodes...)
	}
}

func WithEdges(edges ...*models.WorkflowEdge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Edges = append(w.Edges, edges...)
	}
}

func WithTenant(tenantID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TenantID = tenantID
	}
}

func Disabled() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Enabled = false
	}
}

func TriggerNode(id string) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, Type: models.NodeKindTrigger, Config: map[string]any{}}
}

func ConditionNode(id, field string, operator models.ConditionOperator, value any) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Type: models.NodeKindCondition,
		Config: map[string]any{
			"field":    field,
			"operator": string(operator),
			"value":    value,
		},
	}
}

func ActionNode(id string, actionType models.ActionType, config map[string]any) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, Type: models.NodeKindAction, NodeType: string(actionType), Config: config}
}

func LogicNode(id string, logicType models.LogicType, config map[string]any) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, Type: models.NodeKindLogic, NodeType: string(logicType), Config: config}
}

func Edge(source, target string) *models.WorkflowEdge {
	return &models.WorkflowEdge{ID: source + "->" + target, Source: source, Target: target}
}

func BranchEdge(source, handle, target string) *models.WorkflowEdge {
	return &models.WorkflowEdge{ID: source + ":" + handle + "->" + target, Source: source, Target: target, SourceHandle: handle}
}

func CreateTestContact(overrides ...func(*models.Contact)) *models.Contact {
	contact := &models.Contact{
		ID:        uuid.NewString(),
		TenantID:  TenantID,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Source:    "chat",
		Status:    "lead",
		Tags:      []string{},
		Metadata:  map[string]any{},
	}

	for _, override := range overrides {
		override(contact)
	}

	return contact
}

func CreateTestDeal(contactID string, overrides ...func(*models.Deal)) *models.Deal {
	deal := &models.Deal{
		ID:        uuid.NewString(),
		TenantID:  TenantID,
		ContactID: contactID,
		Title:     "Test Deal",
		Value:     1000,
		Currency:  "USD",
		Stage:     "qualified",
		Metadata:  map[string]any{},
	}

	for _, override := range overrides {
		override(deal)
	}

	return deal
}

func CreateTestUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		ID:       uuid.NewString(),
		TenantID: TenantID,
		Email:    "owner@example.com",
		Name:     "Owner",
	}

	for _, override := range overrides {
		override(user)
	}

	return user
}
