package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
)

const executionColumns = `
	id
  , workflow_id
  , status
  , triggered_by
  , triggered_by_id
  , trigger_data
  , execution_data
  , error_message
  , error_stack
  , execution_time_ms
  , executed_at`

// ExecutionRepository stores workflow execution audit rows.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}

	triggerDataJSON, executionDataJSON, err := marshalExecutionPayloads(execution)
	if err != nil {
		return err
	}

	query := `INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		execution.TriggeredBy,
		execution.TriggeredByID,
		triggerDataJSON,
		executionDataJSON,
		execution.ErrorMessage,
		execution.ErrorStack,
		execution.ExecutionTimeMs,
		execution.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	_, executionDataJSON, err := marshalExecutionPayloads(execution)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_executions SET
			status = $2,
			execution_data = $3,
			error_message = $4,
			error_stack = $5,
			execution_time_ms = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		executionDataJSON,
		execution.ErrorMessage,
		execution.ErrorStack,
		execution.ExecutionTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Update", "execution", "", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+executionColumns+" FROM workflow_executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "execution", "", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowExecution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT" + executionColumns + ` FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY executed_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func marshalExecutionPayloads(execution *models.WorkflowExecution) ([]byte, []byte, error) {
	triggerDataJSON, err := marshalJSON(execution.TriggerData, "{}")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	executionDataJSON, err := marshalJSON(execution.ExecutionData, "{}")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal execution data: %w", err)
	}

	return triggerDataJSON, executionDataJSON, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution                          models.WorkflowExecution
		triggeredByID, errorMsg, errorStack sql.NullString
		executionTime                      sql.NullInt64
		triggerDataJSON, executionDataJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&execution.TriggeredBy,
		&triggeredByID,
		&triggerDataJSON,
		&executionDataJSON,
		&errorMsg,
		&errorStack,
		&executionTime,
		&execution.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	if triggeredByID.Valid {
		execution.TriggeredByID = &triggeredByID.String
	}

	if errorMsg.Valid {
		execution.ErrorMessage = &errorMsg.String
	}

	if errorStack.Valid {
		execution.ErrorStack = &errorStack.String
	}

	if executionTime.Valid {
		execution.ExecutionTimeMs = &executionTime.Int64
	}

	err = json.Unmarshal(triggerDataJSON, &execution.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
	}

	err = json.Unmarshal(executionDataJSON, &execution.ExecutionData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution data: %w", err)
	}

	return &execution, nil
}
