// Package events defines the messages the engine exchanges over the event bus: chained trigger
// events and workflow execution lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/autopilot/pkg/models"
)

type EventType string

const Topic = "autopilot.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// TriggerFiredEvent carries a business event produced by a workflow action.
	TriggerFiredEvent EventType = "trigger.fired"

	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionCancelledEvent EventType = "workflow.execution.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	TenantID   string         `json:"tenant_id"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(id string, eventType EventType, tenantID, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TenantID:   tenantID,
		WorkflowID: workflowID,
	}
}

// TriggerFired re-enters the dispatcher. WorkflowID names the run that emitted it and
// Depth counts the chain of runs behind it.
type TriggerFired struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	TriggerData map[string]any     `json:"trigger_data"`
	Depth       int                `json:"depth"`
	ExecutionID string             `json:"execution_id,omitempty"`
}

func (e TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

// TriggerEvent converts the message into the dispatcher's input.
func (e TriggerFired) TriggerEvent() models.TriggerEvent {
	return models.TriggerEvent{
		Type:        e.TriggerType,
		Data:        e.TriggerData,
		TenantID:    e.TenantID,
		Depth:       e.Depth,
		WorkflowID:  e.WorkflowID,
		ExecutionID: e.ExecutionID,
	}
}

type WorkflowExecutionStarted struct {
	BaseEvent

	ExecutionID  string         `json:"execution_id"`
	WorkflowName string         `json:"workflow_name"`
	TriggerType  string         `json:"trigger_type"`
	TriggerData  map[string]any `json:"trigger_data"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	Status        string `json:"status"`
	DurationMs    int64  `json:"duration_ms"`
	NodesExecuted int    `json:"nodes_executed"`
	NodesFailed   int    `json:"nodes_failed"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

func (w WorkflowExecutionCancelled) GetType() EventType {
	return WorkflowExecutionCancelledEvent
}
