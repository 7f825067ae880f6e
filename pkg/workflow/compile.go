package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/registry"
)

// CompiledNode is a node with its config parsed once. ConfigErr is kept rather than failing
// the compile so the node reports it as a failure when reached.
type CompiledNode struct {
	Node      *models.WorkflowNode
	Config    models.NodeConfig
	ConfigErr error
	// Sources are the ids of nodes with an edge into this one.
	Sources []string
}

// Plan is the executable form of a workflow graph.
type Plan struct {
	Workflow *models.Workflow
	Trigger  *models.WorkflowNode
	Nodes    map[string]*CompiledNode
	Outgoing map[string][]*models.WorkflowEdge
}

// Compile indexes the graph and parses every node config. Only a missing or duplicated
// trigger node is fatal.
func Compile(workflow *models.Workflow) (*Plan, error) {
	triggers := workflow.TriggerNodes()

	switch {
	case len(triggers) == 0:
		return nil, &AuthoringError{Op: "compile", WorkflowID: workflow.ID, Err: ErrTriggerNodeMissing}
	case len(triggers) > 1:
		return nil, &AuthoringError{Op: "compile", WorkflowID: workflow.ID, Err: ErrMultipleTriggerNodes}
	}

	plan := &Plan{
		Workflow: workflow,
		Trigger:  triggers[0],
		Nodes:    make(map[string]*CompiledNode, len(workflow.Nodes)),
		Outgoing: make(map[string][]*models.WorkflowEdge),
	}

	for _, node := range workflow.Nodes {
		if _, exists := plan.Nodes[node.ID]; exists {
			continue
		}

		config, err := models.ParseNodeConfig(node)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidNodeConfig, err)
		}

		plan.Nodes[node.ID] = &CompiledNode{Node: node, Config: config, ConfigErr: err}
	}

	for _, edge := range workflow.Edges {
		plan.Outgoing[edge.Source] = append(plan.Outgoing[edge.Source], edge)

		if target := plan.Nodes[edge.Target]; target != nil {
			target.Sources = append(target.Sources, edge.Source)
		}
	}

	return plan, nil
}

// Validate reports every authoring problem of a workflow without running it: trigger node
// count, duplicate ids, dangling edges and node configs rejected by the registry schemas or
// the typed parser.
func Validate(workflow *models.Workflow, reg *registry.Registry) []error {
	var problems []error

	plan, err := Compile(workflow)
	if err != nil {
		problems = append(problems, err)
	}

	if !workflow.TriggerType.Valid() {
		problems = append(problems, &AuthoringError{
			Op: "validate", WorkflowID: workflow.ID,
			Err: fmt.Errorf("unknown trigger type %q", workflow.TriggerType),
		})
	}

	seen := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if seen[node.ID] {
			problems = append(problems, &AuthoringError{Op: "validate", WorkflowID: workflow.ID, NodeID: node.ID, Err: ErrDuplicateNodeID})

			continue
		}

		seen[node.ID] = true

		if reg != nil {
			if err := reg.ValidateNode(node); err != nil {
				problems = append(problems, &AuthoringError{
					Op: "validate", WorkflowID: workflow.ID, NodeID: node.ID,
					Err: fmt.Errorf("%w: %w", ErrInvalidNodeConfig, err),
				})

				continue
			}
		}

		if plan != nil {
			if compiled := plan.Nodes[node.ID]; compiled != nil && compiled.ConfigErr != nil {
				problems = append(problems, &AuthoringError{Op: "validate", WorkflowID: workflow.ID, NodeID: node.ID, Err: compiled.ConfigErr})
			}
		}
	}

	for _, edge := range workflow.Edges {
		if !seen[edge.Source] || !seen[edge.Target] {
			problems = append(problems, &AuthoringError{
				Op: "validate", WorkflowID: workflow.ID,
				Err: fmt.Errorf("%w: %s (%s -> %s)", ErrDanglingEdge, edge.ID, edge.Source, edge.Target),
			})
		}
	}

	return problems
}

// ValidateAll joins Validate over many workflows.
func ValidateAll(workflows []*models.Workflow, reg *registry.Registry) error {
	var problems []error

	for _, workflow := range workflows {
		problems = append(problems, Validate(workflow, reg)...)
	}

	return errors.Join(problems...)
}
