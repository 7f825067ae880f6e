// Package actions implements the side effects of action nodes: CRM writes, notifications,
// webhooks and conversation metadata updates.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/notify"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/template"
)

var ErrUnhandledActionType = errors.New("unhandled action type")

const webhookTimeout = 10 * time.Second

// Resolver resolves {{path}} references for a run.
type Resolver interface {
	Resolve(ctx context.Context, field string, ectx *models.NodeExecutionContext) (any, bool)
}

// Emitter queues a chained trigger event. It must not block on the runs it starts.
type Emitter interface {
	Emit(ctx context.Context, event models.TriggerEvent) error
}

type ConversationUpdater interface {
	UpdateMetadata(ctx context.Context, conversationID string, metadata map[string]any) error
}

// Executor runs action nodes. Business failures (missing ids, unknown entities, rejected
// webhooks) are returned as unsuccessful results; only unexpected store errors are returned
// as errors.
type Executor struct {
	contacts      persistence.ContactRepository
	deals         persistence.DealRepository
	users         persistence.UserRepository
	notifications persistence.NotificationRepository
	resolver      Resolver
	emitter       Emitter
	mailer        notify.Mailer
	conversations ConversationUpdater
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewExecutor(
	store persistence.Persistence,
	resolver Resolver,
	emitter Emitter,
	mailer notify.Mailer,
	conversations ConversationUpdater,
	logger *slog.Logger,
) *Executor {
	if mailer == nil {
		mailer = notify.DisabledMailer{}
	}

	return &Executor{
		contacts:      store.Contacts(),
		deals:         store.Deals(),
		users:         store.Users(),
		notifications: store.Notifications(),
		resolver:      resolver,
		emitter:       emitter,
		mailer:        mailer,
		conversations: conversations,
		httpClient:    &http.Client{Timeout: webhookTimeout},
		logger:        logger.With("module", "actions"),
	}
}

func (e *Executor) Execute(ctx context.Context, config models.ActionConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	switch c := config.(type) {
	case models.CreateDealConfig:
		return e.createDeal(ctx, c, ectx)
	case models.UpdateContactConfig:
		return e.updateContact(ctx, c, ectx)
	case models.UpdateDealConfig:
		return e.updateDeal(ctx, c, ectx)
	case models.AddTagConfig:
		return e.addTag(ctx, c, ectx)
	case models.SendNotificationConfig:
		return e.sendNotification(ctx, c, ectx)
	case models.SendWebhookConfig:
		return e.sendWebhook(ctx, c, ectx)
	case models.UpdateConversationMetadataConfig:
		return e.updateConversationMetadata(ctx, c, ectx)
	default:
		return models.NodeExecutionResult{}, fmt.Errorf("%w: %s", ErrUnhandledActionType, config.ActionType())
	}
}

func (e *Executor) lookup(ctx context.Context, ectx *models.NodeExecutionContext) template.Lookup {
	return func(path string) (any, bool) {
		return e.resolver.Resolve(ctx, path, ectx)
	}
}

func (e *Executor) render(ctx context.Context, ectx *models.NodeExecutionContext, text string) string {
	return template.Replace(text, e.lookup(ctx, ectx))
}

// resolveID renders an explicit id and falls back to the run's id when it is blank or
// still holds an unresolved token.
func (e *Executor) resolveID(ctx context.Context, ectx *models.NodeExecutionContext, explicit, fallback string) string {
	id := strings.TrimSpace(e.render(ctx, ectx, explicit))
	if id == "" || template.HasTokens(id) {
		return fallback
	}

	return id
}

// renderValues substitutes tokens in every string of a nested map. A value that is a single
// token keeps the resolved type.
func (e *Executor) renderValues(ctx context.Context, ectx *models.NodeExecutionContext, values map[string]any) map[string]any {
	if values == nil {
		return nil
	}

	lookup := e.lookup(ctx, ectx)
	rendered := make(map[string]any, len(values))

	for key, value := range values {
		rendered[key] = renderValue(value, lookup)
	}

	return rendered
}

func renderValue(value any, lookup template.Lookup) any {
	switch v := value.(type) {
	case string:
		return template.Resolve(v, lookup)
	case map[string]any:
		nested := make(map[string]any, len(v))
		for key, item := range v {
			nested[key] = renderValue(item, lookup)
		}

		return nested
	case []any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = renderValue(item, lookup)
		}

		return list
	default:
		return value
	}
}

// emit sends a chained trigger event one level deeper than the current run. Failures are
// logged and never fail the action.
func (e *Executor) emit(ctx context.Context, ectx *models.NodeExecutionContext, triggerType models.TriggerType, data map[string]any) {
	if e.emitter == nil {
		return
	}

	workflowID := ""
	if ectx.Workflow != nil {
		workflowID = ectx.Workflow.ID
	}

	event := models.TriggerEvent{
		Type:        triggerType,
		Data:        data,
		TenantID:    ectx.TenantID,
		Depth:       ectx.Depth + 1,
		WorkflowID:  workflowID,
		ExecutionID: ectx.ExecutionID,
	}

	if err := e.emitter.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to emit chained trigger event",
			"trigger_type", triggerType,
			"execution_id", ectx.ExecutionID,
			"error", err)
	}
}

// mergeTags adds tags to the contact's tag set, keeping existing order. The read and the
// write are separate statements.
func (e *Executor) mergeTags(ctx context.Context, tenantID, contactID string, tags []string) ([]string, []string, error) {
	current, err := e.contacts.GetTags(ctx, tenantID, contactID)
	if err != nil {
		return nil, nil, err
	}

	merged := slices.Clone(current)
	added := make([]string, 0, len(tags))

	for _, tag := range tags {
		if !slices.Contains(merged, tag) {
			merged = append(merged, tag)
			added = append(added, tag)
		}
	}

	if len(added) == 0 {
		return merged, added, nil
	}

	if err := e.contacts.SetTags(ctx, tenantID, contactID, merged); err != nil {
		return nil, nil, err
	}

	return merged, added, nil
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// renderDate returns nil for a blank value and logs invalid dates instead of failing.
func (e *Executor) renderDate(ctx context.Context, ectx *models.NodeExecutionContext, field, raw string) *time.Time {
	rendered := strings.TrimSpace(e.render(ctx, ectx, raw))
	if rendered == "" {
		return nil
	}

	date, ok := parseDate(rendered)
	if !ok {
		e.logger.WarnContext(ctx, "Ignoring invalid date",
			"field", field,
			"value", rendered,
			"execution_id", ectx.ExecutionID)

		return nil
	}

	return &date
}

func notFound(entity, id string) models.NodeExecutionResult {
	return models.Failed(fmt.Sprintf("%s not found: %s", entity, id))
}
