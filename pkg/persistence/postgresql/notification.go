package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/google/uuid"
)

type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewNotificationRepository(db *sql.DB, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := marshalJSON(notification.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (id, tenant_id, user_id, title, message, type, link, metadata, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		notification.ID,
		notification.TenantID,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.Type,
		notification.Link,
		metadataJSON,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, tenantID, userID string) ([]*models.Notification, error) {
	query := `
		SELECT id, tenant_id, user_id, title, message, type, link, metadata, read, created_at
		FROM notifications
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var (
			notification models.Notification
			metadataJSON []byte
		)

		err := rows.Scan(
			&notification.ID,
			&notification.TenantID,
			&notification.UserID,
			&notification.Title,
			&notification.Message,
			&notification.Type,
			&notification.Link,
			&metadataJSON,
			&notification.Read,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		err = json.Unmarshal(metadataJSON, &notification.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
		}

		notifications = append(notifications, &notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}
