// Package registry is the catalog of node components a workflow graph may reference,
// each described by a JSON schema of its config.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var ErrComponentNotRegistered = errors.New("component not registered")

// Component describes one node type: its kind, its discriminator and its config schema.
type Component struct {
	Kind        models.NodeKind `json:"kind"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}

func (c Component) key() string {
	return componentKey(c.Kind, c.Type)
}

type Registry struct {
	logger     *slog.Logger
	mu         sync.RWMutex
	components map[string]Component
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:     logger.With("module", "registry"),
		components: make(map[string]Component),
	}
}

// NewDefaultRegistry returns a registry holding every built-in component.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.RegisterDefaults()

	return r
}

func (r *Registry) Register(component Component) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.components[component.key()] = component
	r.logger.Debug("Registered component", "kind", component.Kind, "type", component.Type)
}

func (r *Registry) Get(kind models.NodeKind, componentType string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	component, ok := r.components[componentKey(kind, componentType)]

	return component, ok
}

// Components lists all registered components ordered by kind then type.
func (r *Registry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Component, 0, len(r.components))
	for _, component := range r.components {
		list = append(list, component)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].key() < list[j].key()
	})

	return list
}

// ValidateNode checks the node config against the schema of its component.
func (r *Registry) ValidateNode(node *models.WorkflowNode) error {
	componentType := componentTypeOf(node)

	component, ok := r.Get(node.Type, componentType)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrComponentNotRegistered, node.Type, componentType)
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	return validateJSONSchema(config, component.Schema)
}

func componentTypeOf(node *models.WorkflowNode) string {
	switch node.Type {
	case models.NodeKindAction:
		return string(models.ActionTypeOf(node))
	case models.NodeKindLogic:
		return node.NodeType
	default:
		return ""
	}
}

func componentKey(kind models.NodeKind, componentType string) string {
	if componentType == "" {
		return string(kind)
	}

	return string(kind) + "/" + componentType
}

func validateJSONSchema(data map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
