package registry

import "github.com/dukex/autopilot/pkg/models"

// templated accepts a literal of the given JSON type or a {{path}} template string.
func templated(jsonType string) map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": jsonType},
			map[string]any{"type": "string", "pattern": `\{\{.+\}\}`},
		},
	}
}

func str() map[string]any {
	return map[string]any{"type": "string"}
}

func object() map[string]any {
	return map[string]any{"type": "object"}
}

func schema(required []string, properties map[string]any) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		list := make([]any, len(required))
		for i, name := range required {
			list[i] = name
		}

		s["required"] = list
	}

	return s
}

var operators = []any{
	string(models.OpEquals), string(models.OpNotEquals),
	string(models.OpContains), string(models.OpNotContains),
	string(models.OpGreaterThan), string(models.OpLessThan),
	string(models.OpGreaterThanOrEqual), string(models.OpLessThanOrEqual),
	string(models.OpIsEmpty), string(models.OpIsNotEmpty),
	string(models.OpExists), string(models.OpNotExists),
}

// RegisterDefaults registers every built-in trigger, condition, action and logic component.
func (r *Registry) RegisterDefaults() {
	r.Register(Component{
		Kind:        models.NodeKindTrigger,
		Name:        "Trigger",
		Description: "Entry point of the workflow; outputs the trigger payload",
		Schema:      object(),
	})

	condition := map[string]any{
		"field":    str(),
		"operator": map[string]any{"type": "string", "enum": operators},
		"value":    map[string]any{},
	}

	r.Register(Component{
		Kind:        models.NodeKindCondition,
		Name:        "Condition",
		Description: "Evaluates field conditions and branches on yes/no",
		Schema: schema(nil, map[string]any{
			"field":    condition["field"],
			"operator": condition["operator"],
			"value":    condition["value"],
			"match":    map[string]any{"type": "string", "enum": []any{"all", "any"}},
			"conditions": map[string]any{
				"type":  "array",
				"items": schema([]string{"field", "operator"}, condition),
			},
		}),
	})

	r.registerActions()

	r.Register(Component{
		Kind:        models.NodeKindLogic,
		Type:        string(models.LogicMerge),
		Name:        "Merge",
		Description: "Joins branches",
		Schema:      object(),
	})

	r.Register(Component{
		Kind:        models.NodeKindLogic,
		Type:        string(models.LogicExpression),
		Name:        "Expression",
		Description: "Evaluates a boolean expression over the run state",
		Schema:      schema([]string{"expression"}, map[string]any{"expression": str()}),
	})
}

func (r *Registry) registerActions() {
	action := func(actionType models.ActionType, name, description string, s map[string]any) {
		r.Register(Component{
			Kind:        models.NodeKindAction,
			Type:        string(actionType),
			Name:        name,
			Description: description,
			Schema:      s,
		})
	}

	action(models.ActionCreateDeal, "Create deal", "Creates a deal for the contact",
		schema([]string{"title"}, map[string]any{
			"title":               str(),
			"value":               templated("number"),
			"currency":            str(),
			"stage":               str(),
			"contact_id":          str(),
			"expected_close_date": str(),
			"metadata":            object(),
		}))

	action(models.ActionUpdateContact, "Update contact", "Updates whitelisted contact fields, metadata and tags",
		schema(nil, map[string]any{
			"contact_id": str(),
			"fields":     object(),
			"metadata":   object(),
			"add_tags":   map[string]any{"type": "array", "items": str()},
		}))

	action(models.ActionUpdateDeal, "Update deal", "Updates a deal; stage changes emit deal_stage_changed",
		schema(nil, map[string]any{
			"deal_id":             str(),
			"title":               str(),
			"stage":               str(),
			"value":               templated("number"),
			"expected_close_date": str(),
			"metadata":            object(),
		}))

	action(models.ActionAddTag, "Add tag", "Adds tags to the contact",
		schema(nil, map[string]any{
			"contact_id": str(),
			"tag":        str(),
			"tags":       map[string]any{"type": "array", "items": str()},
		}))

	action(models.ActionSendNotification, "Send notification", "Notifies a tenant user in-app or by email",
		schema([]string{"to", "title"}, map[string]any{
			"to":                str(),
			"title":             str(),
			"message":           str(),
			"link":              str(),
			"notification_type": map[string]any{"type": "string", "enum": []any{models.NotificationInApp, models.NotificationEmail}},
		}))

	action(models.ActionSendWebhook, "Send webhook", "Sends an HTTP request to an external endpoint",
		schema([]string{"url"}, map[string]any{
			"url":     str(),
			"method":  map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
			"headers": map[string]any{"type": "object", "additionalProperties": str()},
			"body":    map[string]any{},
		}))

	action(models.ActionUpdateConversationMetadata, "Update conversation metadata",
		"Merges metadata into the conversation through the chat service",
		schema([]string{"metadata"}, map[string]any{
			"conversation_id": str(),
			"metadata":        object(),
		}))
}
