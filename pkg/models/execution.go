package models

import "time"

type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSuccess   ExecutionStatus = "success"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// WorkflowExecution is the persisted audit row of one workflow run. It is created when the
// run starts and updated once when it ends.
type WorkflowExecution struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	Status          ExecutionStatus `json:"status"`
	TriggeredBy     string          `json:"triggered_by"`
	TriggeredByID   *string         `json:"triggered_by_id"`
	TriggerData     map[string]any  `json:"trigger_data"`
	ExecutionData   map[string]any  `json:"execution_data"`
	ErrorMessage    *string         `json:"error_message"`
	ErrorStack      *string         `json:"error_stack"`
	ExecutionTimeMs *int64          `json:"execution_time_ms"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// NodeExecutionResult is the uniform outcome of processing one node. NextNodes selects
// outgoing edges by sourceHandle and is only set by condition nodes.
type NodeExecutionResult struct {
	Success   bool           `json:"success"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	NextNodes []string       `json:"nextNodes,omitempty"`
}

func Succeeded(output map[string]any) NodeExecutionResult {
	return NodeExecutionResult{Success: true, Output: output}
}

func Failed(message string) NodeExecutionResult {
	return NodeExecutionResult{Success: false, Error: message}
}
