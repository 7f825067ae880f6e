package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/template"
	"github.com/spf13/cast"
)

const (
	triggerDataPrefix  = "triggerData."
	contactPrefix      = "contact."
	dealPrefix         = "deal."
	conversationPrefix = "conversation."
)

// FieldResolver resolves dotted field paths against a run. Contacts and deals are loaded on
// first reference and memoized in the run's ResolutionCache.
type FieldResolver struct {
	contacts persistence.ContactRepository
	deals    persistence.DealRepository
	logger   *slog.Logger
}

func NewFieldResolver(contacts persistence.ContactRepository, deals persistence.DealRepository, logger *slog.Logger) *FieldResolver {
	return &FieldResolver{
		contacts: contacts,
		deals:    deals,
		logger:   logger.With("module", "field_resolver"),
	}
}

// Resolve returns the value of field for the run. ok is false when the path is undefined;
// a present key holding null resolves to (nil, true).
func (r *FieldResolver) Resolve(ctx context.Context, field string, ectx *models.NodeExecutionContext) (any, bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, false
	}

	if value, ok := ectx.Attribute(field); ok {
		return value, true
	}

	if path, ok := strings.CutPrefix(field, triggerDataPrefix); ok {
		return walkPath(ectx.TriggerData, path)
	}

	if value, ok := ectx.TriggerData[field]; ok {
		return value, true
	}

	if path, ok := strings.CutPrefix(field, contactPrefix); ok {
		contact := r.contact(ctx, ectx)
		if contact == nil {
			return nil, false
		}

		return walkPath(contact.Fields(), path)
	}

	if path, ok := strings.CutPrefix(field, dealPrefix); ok {
		deal := r.deal(ctx, ectx)
		if deal == nil {
			return nil, false
		}

		return walkPath(deal.Fields(), path)
	}

	if path, ok := strings.CutPrefix(field, conversationPrefix); ok {
		if path == "id" && ectx.ConversationID != "" {
			return ectx.ConversationID, true
		}

		return nil, false
	}

	return walkPath(ectx.Snapshot(), field)
}

// Lookup binds the resolver to one run for template substitution.
func (r *FieldResolver) Lookup(ctx context.Context, ectx *models.NodeExecutionContext) template.Lookup {
	return func(path string) (any, bool) {
		return r.Resolve(ctx, path, ectx)
	}
}

func (r *FieldResolver) contact(ctx context.Context, ectx *models.NodeExecutionContext) *models.Contact {
	if ectx.ContactID == "" || r.contacts == nil {
		return nil
	}

	if contact, ok := ectx.Cache.Contact(ectx.ContactID); ok {
		return contact
	}

	contact, err := r.contacts.GetByID(ctx, ectx.TenantID, ectx.ContactID)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to load contact for field resolution",
			"contact_id", ectx.ContactID,
			"tenant_id", ectx.TenantID,
			"execution_id", ectx.ExecutionID,
			"error", err)

		return nil
	}

	ectx.Cache.PutContact(contact)

	return contact
}

func (r *FieldResolver) deal(ctx context.Context, ectx *models.NodeExecutionContext) *models.Deal {
	if ectx.DealID == "" || r.deals == nil {
		return nil
	}

	if deal, ok := ectx.Cache.Deal(ectx.DealID); ok {
		return deal
	}

	deal, err := r.deals.GetByID(ctx, ectx.TenantID, ectx.DealID)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to load deal for field resolution",
			"deal_id", ectx.DealID,
			"tenant_id", ectx.TenantID,
			"execution_id", ectx.ExecutionID,
			"error", err)

		return nil
	}

	ectx.Cache.PutDeal(deal)

	return deal
}

// walkPath follows a dotted path through nested maps and slices.
func walkPath(root any, path string) (any, bool) {
	current := root

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := cast.ToIntE(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}
