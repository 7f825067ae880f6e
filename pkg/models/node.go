package models

// NodeKind is the coarse node category stored in the node's "type" field.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindCondition NodeKind = "condition"
	NodeKindAction    NodeKind = "action"
	NodeKindLogic     NodeKind = "logic"
)

// Condition branch handles.
const (
	HandleYes = "yes"
	HandleNo  = "no"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowNode is a node as persisted by the graph editor. Config is decoded into a
// typed NodeConfig by ParseNodeConfig before execution.
type WorkflowNode struct {
	ID       string         `json:"id"       validate:"required"`
	Type     NodeKind       `json:"type"     validate:"required,oneof=trigger condition action logic"`
	NodeType string         `json:"nodeType"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
	Config   map[string]any `json:"config"`
}

type WorkflowEdge struct {
	ID           string `json:"id"                     validate:"required"`
	Source       string `json:"source"                 validate:"required"`
	Target       string `json:"target"                 validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}
