package web

import (
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/registry"
)

const (
	defaultExecutionLimit = 20
	maxExecutionLimit     = 100
)

// ExecutionsResponse lists the newest executions of one workflow.
type ExecutionsResponse struct {
	WorkflowID string                      `json:"workflow_id"`
	Executions []*models.WorkflowExecution `json:"executions"`
	Count      int                         `json:"count"`
}

type ComponentsResponse struct {
	Components []registry.Component `json:"components"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Checkers  Checkers  `json:"checkers"`
	Timestamp time.Time `json:"timestamp"`
}

type Checkers struct {
	Persistence string `json:"persistence"`
	Registry    string `json:"registry"`
}
