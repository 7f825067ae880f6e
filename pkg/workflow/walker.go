package workflow

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dukex/autopilot/pkg/models"
)

// NodeProcessor runs one node of a plan.
type NodeProcessor interface {
	Process(ctx context.Context, node *CompiledNode, ectx *models.NodeExecutionContext) models.NodeExecutionResult
}

// Walker traverses a plan breadth-first, one node at a time.
type Walker struct {
	processor NodeProcessor
	logger    *slog.Logger
}

func NewWalker(processor NodeProcessor, logger *slog.Logger) *Walker {
	return &Walker{
		processor: processor,
		logger:    logger.With("module", "graph_walker"),
	}
}

// Walk runs the graph from startNodeID and returns the per-node outputs keyed by node id.
// Each node runs at most once. A failed node records {success:false, error} and its outgoing
// edges are not followed; other branches keep running.
func (w *Walker) Walk(ctx context.Context, plan *Plan, startNodeID string, ectx *models.NodeExecutionContext) (map[string]any, error) {
	if _, ok := plan.Nodes[startNodeID]; !ok {
		return nil, &AuthoringError{Op: "walk", WorkflowID: plan.Workflow.ID, NodeID: startNodeID, Err: ErrTriggerNodeMissing}
	}

	executionData := make(map[string]any, len(plan.Nodes))
	visited := make(map[string]bool, len(plan.Nodes))
	queue := []string{startNodeID}

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		if visited[nodeID] {
			continue
		}

		node, ok := plan.Nodes[nodeID]
		if !ok {
			w.logger.DebugContext(ctx, "Skipping edge target missing from graph",
				"workflow_id", plan.Workflow.ID,
				"node_id", nodeID)

			continue
		}

		result := w.processor.Process(ctx, node, ectx)
		visited[nodeID] = true

		var recorded any
		if result.Success {
			if result.Output != nil {
				recorded = result.Output
			} else {
				recorded = map[string]any{}
			}
		} else {
			recorded = map[string]any{"success": false, "error": result.Error}
		}

		executionData[nodeID] = recorded
		ectx.PreviousNodeOutputs[nodeID] = recorded

		if !result.Success {
			continue
		}

		for _, edge := range selectEdges(plan.Outgoing[nodeID], node.Node.Type, result.NextNodes) {
			if !visited[edge.Target] {
				queue = append(queue, edge.Target)
			}
		}
	}

	return executionData, nil
}

// selectEdges keeps, for condition nodes, only the edges whose sourceHandle was selected.
func selectEdges(edges []*models.WorkflowEdge, kind models.NodeKind, nextNodes []string) []*models.WorkflowEdge {
	if kind != models.NodeKindCondition {
		return edges
	}

	selected := make([]*models.WorkflowEdge, 0, len(edges))

	for _, edge := range edges {
		if slices.Contains(nextNodes, edge.SourceHandle) {
			selected = append(selected, edge)
		}
	}

	return selected
}
