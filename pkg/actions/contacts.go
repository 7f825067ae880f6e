package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/template"
)

func (e *Executor) updateContact(ctx context.Context, c models.UpdateContactConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	contactID := e.resolveID(ctx, ectx, c.ContactID, ectx.ContactID)
	if contactID == "" {
		return models.Failed("Contact ID is required to update a contact"), nil
	}

	update := models.ContactUpdate{
		Fields:   make(map[string]string, len(c.Fields)),
		Metadata: e.renderValues(ctx, ectx, c.Metadata),
	}

	lookup := e.lookup(ctx, ectx)

	for name, value := range c.Fields {
		if !persistence.AllowedContactField(name) {
			e.logger.WarnContext(ctx, "Skipping contact field that cannot be updated",
				"field", name,
				"execution_id", ectx.ExecutionID)

			continue
		}

		update.Fields[name] = template.Stringify(renderValue(value, lookup))
	}

	updatedFields := make([]string, 0, len(update.Fields))
	for name := range update.Fields {
		updatedFields = append(updatedFields, name)
	}

	sort.Strings(updatedFields)

	output := map[string]any{
		"contact_id":     contactID,
		"updated_fields": updatedFields,
	}

	if len(update.Fields) > 0 || len(update.Metadata) > 0 {
		if err := e.contacts.Update(ctx, ectx.TenantID, contactID, update); err != nil {
			if persistence.IsNotFound(err) {
				return notFound("Contact", contactID), nil
			}

			return models.NodeExecutionResult{}, fmt.Errorf("failed to update contact: %w", err)
		}

		ectx.Cache.InvalidateContact(contactID)
	}

	if tags := e.renderTags(ctx, ectx, c.AddTags); len(tags) > 0 {
		merged, added, err := e.mergeTags(ctx, ectx.TenantID, contactID, tags)
		if err != nil {
			if persistence.IsNotFound(err) {
				return notFound("Contact", contactID), nil
			}

			return models.NodeExecutionResult{}, fmt.Errorf("failed to update contact tags: %w", err)
		}

		ectx.Cache.InvalidateContact(contactID)

		output["tags"] = merged
		output["added_tags"] = added
	}

	return models.Succeeded(output), nil
}

func (e *Executor) addTag(ctx context.Context, c models.AddTagConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	contactID := e.resolveID(ctx, ectx, c.ContactID, ectx.ContactID)
	if contactID == "" {
		return models.Failed("Contact ID is required to add tags"), nil
	}

	tags := e.renderTags(ctx, ectx, c.TagList())
	if len(tags) == 0 {
		return models.Failed("At least one tag is required"), nil
	}

	merged, added, err := e.mergeTags(ctx, ectx.TenantID, contactID, tags)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound("Contact", contactID), nil
		}

		return models.NodeExecutionResult{}, fmt.Errorf("failed to add tags: %w", err)
	}

	ectx.Cache.InvalidateContact(contactID)

	return models.Succeeded(map[string]any{
		"contact_id": contactID,
		"tags":       merged,
		"added_tags": added,
	}), nil
}

func (e *Executor) renderTags(ctx context.Context, ectx *models.NodeExecutionContext, tags []string) []string {
	rendered := make([]string, 0, len(tags))

	for _, tag := range tags {
		if tag = strings.TrimSpace(e.render(ctx, ectx, tag)); tag != "" {
			rendered = append(rendered, tag)
		}
	}

	return rendered
}
