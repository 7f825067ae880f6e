package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownNodeKind   = errors.New("unknown node kind")
	ErrUnknownActionType = errors.New("unknown action type")
	ErrUnknownLogicType  = errors.New("unknown logic type")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NodeConfig is the typed configuration of a node. The concrete type is one of
// TriggerNodeConfig, ConditionNodeConfig, an ActionConfig or a logic config.
type NodeConfig interface {
	Kind() NodeKind
}

type TriggerNodeConfig struct {
	Settings map[string]any
}

func (TriggerNodeConfig) Kind() NodeKind { return NodeKindTrigger }

type ConditionOperator string

const (
	OpEquals             ConditionOperator = "equals"
	OpNotEquals          ConditionOperator = "not_equals"
	OpContains           ConditionOperator = "contains"
	OpNotContains        ConditionOperator = "not_contains"
	OpGreaterThan        ConditionOperator = "greater_than"
	OpLessThan           ConditionOperator = "less_than"
	OpGreaterThanOrEqual ConditionOperator = "greater_than_or_equal"
	OpLessThanOrEqual    ConditionOperator = "less_than_or_equal"
	OpIsEmpty            ConditionOperator = "is_empty"
	OpIsNotEmpty         ConditionOperator = "is_not_empty"
	OpExists             ConditionOperator = "exists"
	OpNotExists          ConditionOperator = "not_exists"
)

// Condition is a single comparison of a resolved field against a literal value.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value"`
}

// ConditionNodeConfig holds either one inline condition or a list combined with Match.
type ConditionNodeConfig struct {
	Field      string            `json:"field"      validate:"required_without=Conditions"`
	Operator   ConditionOperator `json:"operator"   validate:"required_without=Conditions"`
	Value      any               `json:"value"`
	Conditions []Condition       `json:"conditions" validate:"omitempty,dive"`
	Match      string            `json:"match"      validate:"omitempty,oneof=all any"`
}

func (ConditionNodeConfig) Kind() NodeKind { return NodeKindCondition }

// All returns the conditions to evaluate, the inline one first.
func (c ConditionNodeConfig) All() []Condition {
	conditions := make([]Condition, 0, len(c.Conditions)+1)
	if c.Field != "" {
		conditions = append(conditions, Condition{Field: c.Field, Operator: c.Operator, Value: c.Value})
	}

	return append(conditions, c.Conditions...)
}

// MatchAny reports whether one passing condition is enough.
func (c ConditionNodeConfig) MatchAny() bool {
	return c.Match == "any"
}

type LogicType string

const (
	LogicMerge      LogicType = "merge"
	LogicExpression LogicType = "expression"
)

// MergeConfig joins branches; the node passes through.
type MergeConfig struct{}

func (MergeConfig) Kind() NodeKind { return NodeKindLogic }

// ExpressionConfig evaluates an expression over the run state.
type ExpressionConfig struct {
	Expression string `json:"expression" validate:"required"`
}

func (ExpressionConfig) Kind() NodeKind { return NodeKindLogic }

// ParseNodeConfig decodes and validates the raw config of a node into its typed form.
func ParseNodeConfig(node *WorkflowNode) (NodeConfig, error) {
	switch node.Type {
	case NodeKindTrigger:
		return TriggerNodeConfig{Settings: node.Config}, nil
	case NodeKindCondition:
		return decodeConfig[ConditionNodeConfig](node.Config)
	case NodeKindAction:
		return ParseActionConfig(ActionTypeOf(node), node.Config)
	case NodeKindLogic:
		switch LogicType(node.NodeType) {
		case LogicMerge:
			return MergeConfig{}, nil
		case LogicExpression:
			return decodeConfig[ExpressionConfig](node.Config)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownLogicType, node.NodeType)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeKind, node.Type)
	}
}

// ActionTypeOf returns the action discriminator of an action node. The editor stores it
// in nodeType; older graphs carry it inside the config as "type".
func ActionTypeOf(node *WorkflowNode) ActionType {
	if node.NodeType != "" {
		return ActionType(node.NodeType)
	}

	if t, ok := node.Config["type"].(string); ok {
		return ActionType(t)
	}

	if t, ok := node.Config["action_type"].(string); ok {
		return ActionType(t)
	}

	return ""
}

func decodeConfig[T NodeConfig](raw map[string]any) (T, error) {
	var config T

	if raw == nil {
		raw = map[string]any{}
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return config, fmt.Errorf("failed to encode config: %w", err)
	}

	err = json.Unmarshal(payload, &config)
	if err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	err = validate.Struct(config)
	if err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
