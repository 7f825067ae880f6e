// Package persistence provides the data store abstraction for workflows, execution records
// and the CRM entities actions read and write. Every CRM query is scoped by tenant id.
package persistence

import (
	"context"

	"github.com/dukex/autopilot/pkg/models"
)

type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetAllByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
}

type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	Update(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	// ListByWorkflow returns the newest executions first.
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowExecution, error)
}

type ContactRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Contact, error)
	Save(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, tenantID, id string, update models.ContactUpdate) error
	GetTags(ctx context.Context, tenantID, id string) ([]string, error)
	SetTags(ctx context.Context, tenantID, id string, tags []string) error
}

type DealRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Deal, error)
	Create(ctx context.Context, deal *models.Deal) error
	Update(ctx context.Context, tenantID, id string, update models.DealUpdate) error
}

type UserRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, tenantID, userID string) ([]*models.Notification, error)
}

type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Contacts() ContactRepository
	Deals() DealRepository
	Users() UserRepository
	Notifications() NotificationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AllowedContactField reports whether update_contact may write the named column.
func AllowedContactField(name string) bool {
	for _, field := range models.ContactFields {
		if field == name {
			return true
		}
	}

	return false
}
