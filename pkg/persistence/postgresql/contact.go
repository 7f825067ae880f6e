package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ContactRepository reads and writes CRM contacts. Every statement filters on tenant_id.
type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

func (r *ContactRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Contact, error) {
	query := `
		SELECT id, tenant_id, first_name, last_name, email, phone, company, source, status,
			tags, metadata, created_at, updated_at
		FROM contacts
		WHERE tenant_id = $1 AND id = $2
	`

	var (
		contact      models.Contact
		metadataJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&contact.ID,
		&contact.TenantID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.Phone,
		&contact.Company,
		&contact.Source,
		&contact.Status,
		pq.Array(&contact.Tags),
		&metadataJSON,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "contact", tenantID, id, persistence.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to query contact: %w", err)
	}

	err = json.Unmarshal(metadataJSON, &contact.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact metadata: %w", err)
	}

	return &contact, nil
}

func (r *ContactRepository) Save(ctx context.Context, contact *models.Contact) error {
	now := time.Now().UTC()

	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now

	metadataJSON, err := marshalJSON(contact.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("failed to marshal contact metadata: %w", err)
	}

	tags := contact.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO contacts (id, tenant_id, first_name, last_name, email, phone, company, source, status,
			tags, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			company = EXCLUDED.company,
			source = EXCLUDED.source,
			status = EXCLUDED.status,
			tags = EXCLUDED.tags,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		WHERE contacts.tenant_id = EXCLUDED.tenant_id
	`

	_, err = r.db.ExecContext(ctx, query,
		contact.ID,
		contact.TenantID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		contact.Company,
		contact.Source,
		contact.Status,
		pq.Array(tags),
		metadataJSON,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

// Update writes whitelisted columns and merges metadata into the stored object.
func (r *ContactRepository) Update(ctx context.Context, tenantID, id string, update models.ContactUpdate) error {
	assignments := []string{"updated_at = $3"}
	args := []any{tenantID, id, time.Now().UTC()}

	for _, name := range slices.Sorted(maps.Keys(update.Fields)) {
		if !persistence.AllowedContactField(name) {
			return persistence.NewEntityError("Update", "contact", tenantID, id, fmt.Errorf("%w: %s", persistence.ErrInvalidField, name))
		}

		args = append(args, update.Fields[name])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", name, len(args)))
	}

	if len(update.Metadata) > 0 {
		metadataJSON, err := json.Marshal(update.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal contact metadata: %w", err)
		}

		args = append(args, metadataJSON)
		assignments = append(assignments, fmt.Sprintf("metadata = metadata || $%d::jsonb", len(args)))
	}

	query := "UPDATE contacts SET " + strings.Join(assignments, ", ") + " WHERE tenant_id = $1 AND id = $2"

	return r.exec(ctx, "Update", tenantID, id, query, args...)
}

func (r *ContactRepository) GetTags(ctx context.Context, tenantID, id string) ([]string, error) {
	var tags []string

	err := r.db.QueryRowContext(ctx, "SELECT tags FROM contacts WHERE tenant_id = $1 AND id = $2", tenantID, id).
		Scan(pq.Array(&tags))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetTags", "contact", tenantID, id, persistence.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to query contact tags: %w", err)
	}

	return tags, nil
}

func (r *ContactRepository) SetTags(ctx context.Context, tenantID, id string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}

	query := "UPDATE contacts SET tags = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2"

	return r.exec(ctx, "SetTags", tenantID, id, query, tenantID, id, pq.Array(tags), time.Now().UTC())
}

func (r *ContactRepository) exec(ctx context.Context, op, tenantID, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s contact: %w", strings.ToLower(op), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError(op, "contact", tenantID, id, persistence.ErrContactNotFound)
	}

	return nil
}
