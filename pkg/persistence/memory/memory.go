// Package memory provides an in-process persistence implementation for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence keeps every entity in maps guarded by one lock. Values are copied on the way
// in and out so callers never alias stored state.
type Persistence struct {
	mu            sync.RWMutex
	workflows     map[string]*models.Workflow
	executions    map[string]*models.WorkflowExecution
	contacts      map[string]*models.Contact
	deals         map[string]*models.Deal
	users         map[string]*models.User
	notifications []*models.Notification
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows:  make(map[string]*models.Workflow),
		executions: make(map[string]*models.WorkflowExecution),
		contacts:   make(map[string]*models.Contact),
		deals:      make(map[string]*models.Deal),
		users:      make(map[string]*models.User),
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository         { return (*workflowRepo)(p) }
func (p *Persistence) Executions() persistence.ExecutionRepository       { return (*executionRepo)(p) }
func (p *Persistence) Contacts() persistence.ContactRepository           { return (*contactRepo)(p) }
func (p *Persistence) Deals() persistence.DealRepository                 { return (*dealRepo)(p) }
func (p *Persistence) Users() persistence.UserRepository                 { return (*userRepo)(p) }
func (p *Persistence) Notifications() persistence.NotificationRepository { return (*notificationRepo)(p) }

func (p *Persistence) HealthCheck(context.Context) error { return nil }

func (p *Persistence) Close(context.Context) error { return nil }

type workflowRepo Persistence

func (r *workflowRepo) GetAll(context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.workflows))
	for _, workflow := range r.workflows {
		workflows = append(workflows, cloneWorkflow(workflow))
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].CreatedAt.Before(workflows[j].CreatedAt) })

	return workflows, nil
}

func (r *workflowRepo) GetAllByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(all))
	for _, workflow := range all {
		if workflow.TenantID == tenantID {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (r *workflowRepo) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewEntityError("GetByID", "workflow", "", id, persistence.ErrWorkflowNotFound)
	}

	return cloneWorkflow(workflow), nil
}

func (r *workflowRepo) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now
	r.workflows[workflow.ID] = cloneWorkflow(workflow)

	return nil
}

type executionRepo Persistence

func (r *executionRepo) Create(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}

	copied := *execution
	r.executions[execution.ID] = &copied

	return nil
}

func (r *executionRepo) Update(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executions[execution.ID]; !ok {
		return persistence.NewEntityError("Update", "execution", "", execution.ID, persistence.ErrExecutionNotFound)
	}

	copied := *execution
	r.executions[execution.ID] = &copied

	return nil
}

func (r *executionRepo) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, persistence.NewEntityError("GetByID", "execution", "", id, persistence.ErrExecutionNotFound)
	}

	copied := *execution

	return &copied, nil
}

func (r *executionRepo) ListByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executions := make([]*models.WorkflowExecution, 0)
	for _, execution := range r.executions {
		if execution.WorkflowID == workflowID {
			copied := *execution
			executions = append(executions, &copied)
		}
	}

	sort.Slice(executions, func(i, j int) bool { return executions[i].ExecutedAt.After(executions[j].ExecutedAt) })

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

type contactRepo Persistence

func (r *contactRepo) GetByID(_ context.Context, tenantID, id string) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contact, ok := r.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return nil, persistence.NewEntityError("GetByID", "contact", tenantID, id, persistence.ErrContactNotFound)
	}

	return cloneContact(contact), nil
}

func (r *contactRepo) Save(_ context.Context, contact *models.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now
	r.contacts[contact.ID] = cloneContact(contact)

	return nil
}

func (r *contactRepo) Update(_ context.Context, tenantID, id string, update models.ContactUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return persistence.NewEntityError("Update", "contact", tenantID, id, persistence.ErrContactNotFound)
	}

	for name, value := range update.Fields {
		switch name {
		case "first_name":
			contact.FirstName = value
		case "last_name":
			contact.LastName = value
		case "email":
			contact.Email = value
		case "phone":
			contact.Phone = value
		case "company":
			contact.Company = value
		case "source":
			contact.Source = value
		case "status":
			contact.Status = value
		default:
			return persistence.NewEntityError("Update", "contact", tenantID, id, fmt.Errorf("%w: %s", persistence.ErrInvalidField, name))
		}
	}

	if len(update.Metadata) > 0 {
		if contact.Metadata == nil {
			contact.Metadata = map[string]any{}
		}

		maps.Copy(contact.Metadata, update.Metadata)
	}

	contact.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *contactRepo) GetTags(ctx context.Context, tenantID, id string) ([]string, error) {
	contact, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	return contact.Tags, nil
}

func (r *contactRepo) SetTags(_ context.Context, tenantID, id string, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return persistence.NewEntityError("SetTags", "contact", tenantID, id, persistence.ErrContactNotFound)
	}

	contact.Tags = slices.Clone(tags)
	contact.UpdatedAt = time.Now().UTC()

	return nil
}

type dealRepo Persistence

func (r *dealRepo) GetByID(_ context.Context, tenantID, id string) (*models.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deal, ok := r.deals[id]
	if !ok || deal.TenantID != tenantID {
		return nil, persistence.NewEntityError("GetByID", "deal", tenantID, id, persistence.ErrDealNotFound)
	}

	return cloneDeal(deal), nil
}

func (r *dealRepo) Create(_ context.Context, deal *models.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}

	deal.CreatedAt = now
	deal.UpdatedAt = now
	r.deals[deal.ID] = cloneDeal(deal)

	return nil
}

func (r *dealRepo) Update(_ context.Context, tenantID, id string, update models.DealUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deal, ok := r.deals[id]
	if !ok || deal.TenantID != tenantID {
		return persistence.NewEntityError("Update", "deal", tenantID, id, persistence.ErrDealNotFound)
	}

	if update.Title != nil {
		deal.Title = *update.Title
	}

	if update.Stage != nil {
		deal.Stage = *update.Stage
	}

	if update.Value != nil {
		deal.Value = *update.Value
	}

	if update.ExpectedCloseDate != nil {
		closeDate := *update.ExpectedCloseDate
		deal.ExpectedCloseDate = &closeDate
	}

	if len(update.Metadata) > 0 {
		if deal.Metadata == nil {
			deal.Metadata = map[string]any{}
		}

		maps.Copy(deal.Metadata, update.Metadata)
	}

	deal.UpdatedAt = time.Now().UTC()

	return nil
}

type userRepo Persistence

func (r *userRepo) GetByID(_ context.Context, tenantID, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, persistence.NewEntityError("GetByID", "user", tenantID, id, persistence.ErrUserNotFound)
	}

	copied := *user

	return &copied, nil
}

func (r *userRepo) GetByEmail(_ context.Context, tenantID, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.TenantID == tenantID && strings.EqualFold(user.Email, email) {
			copied := *user

			return &copied, nil
		}
	}

	return nil, persistence.NewEntityError("GetByEmail", "user", tenantID, email, persistence.ErrUserNotFound)
}

func (r *userRepo) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	copied := *user
	r.users[user.ID] = &copied

	return nil
}

type notificationRepo Persistence

func (r *notificationRepo) Create(_ context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	copied := *notification
	r.notifications = append(r.notifications, &copied)

	return nil
}

func (r *notificationRepo) ListByUser(_ context.Context, tenantID, userID string) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notifications := make([]*models.Notification, 0)
	for _, notification := range r.notifications {
		if notification.TenantID == tenantID && notification.UserID == userID {
			copied := *notification
			notifications = append(notifications, &copied)
		}
	}

	return notifications, nil
}

func cloneWorkflow(workflow *models.Workflow) *models.Workflow {
	copied := *workflow
	copied.Nodes = slices.Clone(workflow.Nodes)
	copied.Edges = slices.Clone(workflow.Edges)

	return &copied
}

func cloneContact(contact *models.Contact) *models.Contact {
	copied := *contact
	copied.Tags = slices.Clone(contact.Tags)
	copied.Metadata = maps.Clone(contact.Metadata)

	return &copied
}

func cloneDeal(deal *models.Deal) *models.Deal {
	copied := *deal
	copied.Metadata = maps.Clone(deal.Metadata)

	return &copied
}
