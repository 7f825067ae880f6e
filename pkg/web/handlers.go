// Package web serves the worker's operational HTTP surface: health, metrics, the component
// catalog and read-only execution audit.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/registry"
	"github.com/gofiber/fiber/v3"
)

type Handlers struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
}

func NewHandlers(p persistence.Persistence, reg *registry.Registry, logger *slog.Logger) *Handlers {
	return &Handlers{
		persistence: p,
		registry:    reg,
		logger:      logger.With("module", "web"),
	}
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	persistenceCheck, persistenceOk := "ok", true
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		h.logger.WarnContext(c.Context(), "Persistence health check failed", "error", err)

		persistenceCheck, persistenceOk = err.Error(), false
	}

	registryCheck, registryOk := "ok", len(h.registry.Components()) > 0
	if !registryOk {
		registryCheck = "no components registered"
	}

	response := HealthResponse{
		Status:  "unhealthy",
		Message: "Autopilot worker is unhealthy",
		Checkers: Checkers{
			Persistence: persistenceCheck,
			Registry:    registryCheck,
		},
		Timestamp: time.Now().UTC(),
	}

	httpStatus := http.StatusServiceUnavailable

	if persistenceOk && registryOk {
		response.Status = "healthy"
		response.Message = "Autopilot worker is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(response)
}

func (h *Handlers) ListComponents(c fiber.Ctx) error {
	return c.JSON(ComponentsResponse{Components: h.registry.Components()})
}

// ListExecutions returns the newest executions of a workflow owned by the tenant_id query
// parameter.
func (h *Handlers) ListExecutions(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	workflowID := c.Params("id")

	if _, err := h.tenantWorkflow(c, tenantID, workflowID); err != nil {
		return handleRepositoryError(c, err)
	}

	executions, err := h.persistence.Executions().ListByWorkflow(c.Context(), workflowID, limit)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(ExecutionsResponse{
		WorkflowID: workflowID,
		Executions: executions,
		Count:      len(executions),
	})
}

// GetExecution returns one execution when its workflow belongs to the tenant_id query parameter.
func (h *Handlers) GetExecution(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	execution, err := h.persistence.Executions().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleRepositoryError(c, err)
	}

	if _, err := h.tenantWorkflow(c, tenantID, execution.WorkflowID); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return handleRepositoryError(c, persistence.ErrExecutionNotFound)
		}

		return handleRepositoryError(c, err)
	}

	return c.JSON(execution)
}

// tenantWorkflow loads a workflow and hides it from other tenants as not found.
func (h *Handlers) tenantWorkflow(c fiber.Ctx, tenantID, workflowID string) (*models.Workflow, error) {
	workflow, err := h.persistence.Workflows().GetByID(c.Context(), workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.TenantID != tenantID {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultExecutionLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}

	if limit < 1 {
		return 0, strconv.ErrRange
	}

	return min(limit, maxExecutionLimit), nil
}
