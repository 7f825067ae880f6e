package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/otelhelper"
	"github.com/expr-lang/expr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ActionRunner performs the side effect of an action node. Expected business failures come
// back as an unsuccessful result; an error means something unexpected went wrong.
type ActionRunner interface {
	Execute(ctx context.Context, config models.ActionConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error)
}

// Processor runs a single node and normalizes its outcome. It never panics or returns
// an error: every failure becomes an unsuccessful NodeExecutionResult.
type Processor struct {
	evaluator *ConditionEvaluator
	actions   ActionRunner
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewProcessor(evaluator *ConditionEvaluator, actions ActionRunner, tracer trace.Tracer, m *metrics.Metrics, logger *slog.Logger) *Processor {
	return &Processor{
		evaluator: evaluator,
		actions:   actions,
		tracer:    tracer,
		metrics:   m,
		logger:    logger.With("module", "node_processor"),
	}
}

func (p *Processor) Process(ctx context.Context, node *CompiledNode, ectx *models.NodeExecutionContext) (result models.NodeExecutionResult) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.Node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Node.Type)),
		attribute.String(otelhelper.NodeTypeKey, node.Node.NodeType),
		attribute.String(otelhelper.ExecutionIDKey, ectx.ExecutionID),
	)

	logger := p.logger.With(
		"execution_id", ectx.ExecutionID,
		"node_id", node.Node.ID,
		"node_kind", node.Node.Type,
		"node_type", node.Node.NodeType,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Node panicked", "panic", r)
			result = models.Failed(fmt.Sprintf("node %s panicked: %v", node.Node.ID, r))
		}

		if !result.Success {
			otelhelper.SetFailure(span, result.Error)
		}

		p.metrics.NodeProcessed(string(node.Node.Type), result.Success)
		span.End()
	}()

	if node.ConfigErr != nil {
		logger.WarnContext(ctx, "Node has an invalid configuration", "error", node.ConfigErr)

		return models.Failed(node.ConfigErr.Error())
	}

	result = p.dispatch(ctx, node, ectx)

	if result.Success {
		logger.DebugContext(ctx, "Node succeeded")
	} else {
		logger.InfoContext(ctx, "Node failed", "error", result.Error)
	}

	return result
}

func (p *Processor) dispatch(ctx context.Context, node *CompiledNode, ectx *models.NodeExecutionContext) models.NodeExecutionResult {
	switch config := node.Config.(type) {
	case models.TriggerNodeConfig:
		return models.Succeeded(maps.Clone(ectx.TriggerData))
	case models.ConditionNodeConfig:
		passed := p.evaluator.EvaluateNode(ctx, config, ectx)

		handle := models.HandleNo
		if passed {
			handle = models.HandleYes
		}

		return models.NodeExecutionResult{
			Success:   true,
			Output:    map[string]any{"result": passed},
			NextNodes: []string{handle},
		}
	case models.ActionConfig:
		result, err := p.actions.Execute(ctx, config, ectx)
		if err != nil {
			return models.Failed(err.Error())
		}

		return result
	case models.MergeConfig:
		return models.Succeeded(mergeSources(node, ectx))
	case models.ExpressionConfig:
		return evaluateExpression(config, ectx)
	default:
		return models.Failed(fmt.Errorf("%w: %s", ErrUnhandledNodeKind, node.Node.Type).Error())
	}
}

// mergeSources collects the outputs of the upstream nodes that already ran, keyed by node id.
func mergeSources(node *CompiledNode, ectx *models.NodeExecutionContext) map[string]any {
	merged := make(map[string]any, len(node.Sources))

	for _, source := range node.Sources {
		if output, ok := ectx.PreviousNodeOutputs[source]; ok {
			merged[source] = output
		}
	}

	return merged
}

func evaluateExpression(config models.ExpressionConfig, ectx *models.NodeExecutionContext) models.NodeExecutionResult {
	env := ectx.Snapshot()

	program, err := expr.Compile(config.Expression, expr.Env(env))
	if err != nil {
		return models.Failed(fmt.Sprintf("failed to compile expression: %v", err))
	}

	value, err := expr.Run(program, env)
	if err != nil {
		return models.Failed(fmt.Sprintf("failed to evaluate expression: %v", err))
	}

	return models.Succeeded(map[string]any{"result": value})
}
