package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrTriggerNodeMissing   = errors.New("workflow has no trigger node")
	ErrMultipleTriggerNodes = errors.New("workflow has more than one trigger node")
	ErrDanglingEdge         = errors.New("edge references an unknown node")
	ErrDuplicateNodeID      = errors.New("duplicate node id")
	ErrUnhandledNodeKind    = errors.New("unhandled node kind")
	ErrInvalidNodeConfig    = errors.New("invalid node configuration")
)

// AuthoringError is a defect in the workflow graph itself. It aborts the run of that workflow
// and is never turned into a node-level failure.
type AuthoringError struct {
	Op         string
	WorkflowID string
	NodeID     string
	Err        error
}

func (e *AuthoringError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("workflow %s %s failed for node %s: %v", e.WorkflowID, e.Op, e.NodeID, e.Err)
	}

	return fmt.Sprintf("workflow %s %s failed: %v", e.WorkflowID, e.Op, e.Err)
}

func (e *AuthoringError) Unwrap() error {
	return e.Err
}

func (e *AuthoringError) Is(target error) bool {
	var authoringError *AuthoringError

	return errors.As(target, &authoringError)
}

func IsAuthoringError(err error) bool {
	var authoringError *AuthoringError

	return errors.As(err, &authoringError)
}
