// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrContactNotFound   = errors.New("contact not found")
	ErrDealNotFound      = errors.New("deal not found")
	ErrUserNotFound      = errors.New("user not found")

	// ErrInvalidField indicates an update referenced a column that cannot be written.
	ErrInvalidField = errors.New("invalid field")
)

// EntityError wraps a repository error with the operation and the entity it targeted.
type EntityError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Update")
	Entity   string // "contact", "deal", ...
	TenantID string
	ID       string
	Err      error
}

func (e *EntityError) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("%s operation failed for %s %s (tenant %s): %v", e.Op, e.Entity, e.ID, e.TenantID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewEntityError(op, entity, tenantID, id string, err error) *EntityError {
	return &EntityError{
		Op:       op,
		Entity:   entity,
		TenantID: tenantID,
		ID:       id,
		Err:      err,
	}
}

func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrDealNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
