package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/template"
	"github.com/spf13/cast"
)

const defaultCurrency = "USD"

func (e *Executor) createDeal(ctx context.Context, c models.CreateDealConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	contactID := e.resolveID(ctx, ectx, c.ContactID, ectx.ContactID)
	if contactID == "" {
		return models.Failed("Contact ID is required to create a deal"), nil
	}

	value, err := parseAmount(c.Value, e.lookup(ctx, ectx))
	if err != nil {
		return models.Failed(err.Error()), nil
	}

	deal := &models.Deal{
		TenantID:          ectx.TenantID,
		ContactID:         contactID,
		Title:             e.render(ctx, ectx, c.Title),
		Currency:          strings.ToUpper(strings.TrimSpace(e.render(ctx, ectx, c.Currency))),
		Stage:             strings.TrimSpace(e.render(ctx, ectx, c.Stage)),
		ExpectedCloseDate: e.renderDate(ctx, ectx, "expected_close_date", c.ExpectedCloseDate),
		Metadata:          e.renderValues(ctx, ectx, c.Metadata),
	}

	if value != nil {
		deal.Value = *value
	}

	if deal.Currency == "" {
		deal.Currency = defaultCurrency
	}

	if deal.Stage == "" {
		deal.Stage = models.DefaultDealStage
	}

	if deal.Metadata == nil {
		deal.Metadata = map[string]any{}
	}

	deal.Metadata["execution_id"] = ectx.ExecutionID
	if ectx.Workflow != nil {
		deal.Metadata["workflow_id"] = ectx.Workflow.ID
	}

	if err := e.deals.Create(ctx, deal); err != nil {
		return models.NodeExecutionResult{}, fmt.Errorf("failed to create deal: %w", err)
	}

	if ectx.DealID == "" {
		ectx.DealID = deal.ID
	}

	e.logger.InfoContext(ctx, "Deal created",
		"deal_id", deal.ID,
		"contact_id", contactID,
		"execution_id", ectx.ExecutionID)

	e.emit(ctx, ectx, models.TriggerDealCreated, map[string]any{
		"deal_id":    deal.ID,
		"contact_id": deal.ContactID,
		"title":      deal.Title,
		"value":      deal.Value,
		"currency":   deal.Currency,
		"stage":      deal.Stage,
	})

	return models.Succeeded(map[string]any{
		"deal_id":    deal.ID,
		"contact_id": deal.ContactID,
		"title":      deal.Title,
		"value":      deal.Value,
		"currency":   deal.Currency,
		"stage":      deal.Stage,
	}), nil
}

func (e *Executor) updateDeal(ctx context.Context, c models.UpdateDealConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	dealID := e.resolveID(ctx, ectx, c.DealID, ectx.DealID)
	if dealID == "" {
		return models.Failed("Deal ID is required to update a deal"), nil
	}

	current, err := e.deals.GetByID(ctx, ectx.TenantID, dealID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound("Deal", dealID), nil
		}

		return models.NodeExecutionResult{}, fmt.Errorf("failed to load deal: %w", err)
	}

	value, err := parseAmount(c.Value, e.lookup(ctx, ectx))
	if err != nil {
		return models.Failed(err.Error()), nil
	}

	update := models.DealUpdate{
		Value:             value,
		ExpectedCloseDate: e.renderDate(ctx, ectx, "expected_close_date", c.ExpectedCloseDate),
		Metadata:          e.renderValues(ctx, ectx, c.Metadata),
	}

	if title := strings.TrimSpace(e.render(ctx, ectx, c.Title)); title != "" {
		update.Title = &title
	}

	if stage := strings.TrimSpace(e.render(ctx, ectx, c.Stage)); stage != "" {
		update.Stage = &stage
	}

	output := map[string]any{
		"deal_id":        dealID,
		"previous_stage": current.Stage,
		"stage":          current.Stage,
		"stage_changed":  false,
	}

	if update.Empty() {
		return models.Succeeded(output), nil
	}

	if err := e.deals.Update(ctx, ectx.TenantID, dealID, update); err != nil {
		if persistence.IsNotFound(err) {
			return notFound("Deal", dealID), nil
		}

		return models.NodeExecutionResult{}, fmt.Errorf("failed to update deal: %w", err)
	}

	ectx.Cache.InvalidateDeal(dealID)

	if update.Stage != nil && *update.Stage != current.Stage {
		output["stage"] = *update.Stage
		output["stage_changed"] = true

		e.emit(ctx, ectx, models.TriggerDealStageChanged, map[string]any{
			"deal_id":    dealID,
			"contact_id": current.ContactID,
			"title":      current.Title,
			"from_stage": current.Stage,
			"to_stage":   *update.Stage,
		})
	}

	return models.Succeeded(output), nil
}

// parseAmount accepts a number, a numeric string or a template resolving to either.
// A blank value yields nil.
func parseAmount(raw any, lookup template.Lookup) (*float64, error) {
	value := raw

	if text, ok := raw.(string); ok {
		value = template.Resolve(text, lookup)

		if s, ok := value.(string); ok {
			value = strings.TrimSpace(s)
			if value == "" {
				return nil, nil
			}
		}
	}

	if value == nil {
		return nil, nil
	}

	amount, err := cast.ToFloat64E(value)
	if err != nil {
		return nil, fmt.Errorf("invalid deal value: %v", raw)
	}

	return &amount, nil
}
