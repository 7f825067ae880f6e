package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/spf13/cast"
)

// Resolver resolves a dotted field path for a run.
type Resolver interface {
	Resolve(ctx context.Context, field string, ectx *models.NodeExecutionContext) (any, bool)
}

type ConditionEvaluator struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewConditionEvaluator(resolver Resolver, logger *slog.Logger) *ConditionEvaluator {
	return &ConditionEvaluator{
		resolver: resolver,
		logger:   logger.With("module", "condition_evaluator"),
	}
}

// EvaluateNode combines the conditions of a condition node: all must pass unless match is "any".
// A node without conditions passes.
func (e *ConditionEvaluator) EvaluateNode(ctx context.Context, config models.ConditionNodeConfig, ectx *models.NodeExecutionContext) bool {
	conditions := config.All()
	if len(conditions) == 0 {
		return true
	}

	anyMatch := config.MatchAny()

	for _, condition := range conditions {
		passed := e.Evaluate(ctx, condition, ectx)

		if anyMatch && passed {
			return true
		}

		if !anyMatch && !passed {
			return false
		}
	}

	return !anyMatch
}

// Evaluate applies one comparison. Unknown operators evaluate to false.
func (e *ConditionEvaluator) Evaluate(ctx context.Context, condition models.Condition, ectx *models.NodeExecutionContext) bool {
	actual, defined := e.resolver.Resolve(ctx, condition.Field, ectx)
	expected := condition.Value

	switch condition.Operator {
	case models.OpEquals:
		return defined && looseEqual(actual, expected)
	case models.OpNotEquals:
		return !defined || !looseEqual(actual, expected)
	case models.OpContains:
		return defined && contains(actual, expected)
	case models.OpNotContains:
		return !defined || !contains(actual, expected)
	case models.OpGreaterThan:
		return compareNumbers(actual, expected, func(a, b float64) bool { return a > b })
	case models.OpLessThan:
		return compareNumbers(actual, expected, func(a, b float64) bool { return a < b })
	case models.OpGreaterThanOrEqual:
		return compareNumbers(actual, expected, func(a, b float64) bool { return a >= b })
	case models.OpLessThanOrEqual:
		return compareNumbers(actual, expected, func(a, b float64) bool { return a <= b })
	case models.OpIsEmpty:
		return isEmpty(actual)
	case models.OpIsNotEmpty:
		return !isEmpty(actual)
	case models.OpExists:
		return defined && actual != nil
	case models.OpNotExists:
		return !defined || actual == nil
	default:
		e.logger.WarnContext(ctx, "Unknown condition operator, evaluating to false",
			"operator", condition.Operator,
			"field", condition.Field,
			"execution_id", ectx.ExecutionID)

		return false
	}
}

// looseEqual compares numerically when both sides are numbers or numeric strings and
// textually otherwise.
func looseEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := toNumber(actual); ok {
		if b, ok := toNumber(expected); ok {
			return a == b
		}
	}

	if a, ok := actual.(bool); ok {
		b, err := cast.ToBoolE(expected)

		return err == nil && a == b
	}

	return cast.ToString(actual) == cast.ToString(expected)
}

func contains(actual, expected any) bool {
	switch list := actual.(type) {
	case []any:
		for _, item := range list {
			if looseEqual(item, expected) {
				return true
			}
		}

		return false
	case []string:
		needle := cast.ToString(expected)
		for _, item := range list {
			if item == needle {
				return true
			}
		}

		return false
	case nil:
		return false
	}

	return strings.Contains(cast.ToString(actual), cast.ToString(expected))
}

func compareNumbers(actual, expected any, cmp func(a, b float64) bool) bool {
	a, ok := toNumber(actual)
	if !ok {
		return false
	}

	b, ok := toNumber(expected)
	if !ok {
		return false
	}

	return cmp(a, b)
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, false
		}

		n, err := cast.ToFloat64E(strings.TrimSpace(v))

		return n, err == nil
	default:
		n, err := cast.ToFloat64E(v)

		return n, err == nil
	}
}

// isEmpty treats falsy values and blank strings as empty. Collections are never empty,
// even with no elements.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	}

	if n, ok := toNumber(value); ok {
		return n == 0
	}

	return false
}
