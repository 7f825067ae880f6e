package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
)

type DealRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDealRepository(db *sql.DB, logger *slog.Logger) *DealRepository {
	return &DealRepository{db: db, logger: logger}
}

func (r *DealRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	query := `
		SELECT id, tenant_id, contact_id, title, value::float8, currency, stage, expected_close_date,
			metadata, created_at, updated_at
		FROM deals
		WHERE tenant_id = $1 AND id = $2
	`

	var (
		deal         models.Deal
		closeDate    sql.NullTime
		metadataJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&deal.ID,
		&deal.TenantID,
		&deal.ContactID,
		&deal.Title,
		&deal.Value,
		&deal.Currency,
		&deal.Stage,
		&closeDate,
		&metadataJSON,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "deal", tenantID, id, persistence.ErrDealNotFound)
		}

		return nil, fmt.Errorf("failed to query deal: %w", err)
	}

	if closeDate.Valid {
		deal.ExpectedCloseDate = &closeDate.Time
	}

	err = json.Unmarshal(metadataJSON, &deal.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal deal metadata: %w", err)
	}

	return &deal, nil
}

func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	now := time.Now().UTC()

	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}

	deal.CreatedAt = now
	deal.UpdatedAt = now

	metadataJSON, err := marshalJSON(deal.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("failed to marshal deal metadata: %w", err)
	}

	query := `
		INSERT INTO deals (id, tenant_id, contact_id, title, value, currency, stage, expected_close_date,
			metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		deal.ID,
		deal.TenantID,
		deal.ContactID,
		deal.Title,
		deal.Value,
		deal.Currency,
		deal.Stage,
		deal.ExpectedCloseDate,
		metadataJSON,
		deal.CreatedAt,
		deal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	return nil
}

// Update applies the non-nil fields of update and merges metadata.
func (r *DealRepository) Update(ctx context.Context, tenantID, id string, update models.DealUpdate) error {
	metadataJSON, err := marshalJSON(update.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("failed to marshal deal metadata: %w", err)
	}

	query := `
		UPDATE deals SET
			title = COALESCE($3, title),
			stage = COALESCE($4, stage),
			value = COALESCE($5, value),
			expected_close_date = COALESCE($6, expected_close_date),
			metadata = metadata || $7::jsonb,
			updated_at = $8
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		tenantID,
		id,
		update.Title,
		update.Stage,
		update.Value,
		update.ExpectedCloseDate,
		metadataJSON,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Update", "deal", tenantID, id, persistence.ErrDealNotFound)
	}

	return nil
}
