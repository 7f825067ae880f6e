package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
)

type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) GetByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, email, name FROM users WHERE tenant_id = $1 AND id = $2", tenantID, id)

	return r.scan(row, "GetByID", tenantID, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, email, name FROM users WHERE tenant_id = $1 AND lower(email) = lower($2) LIMIT 1",
		tenantID, email)

	return r.scan(row, "GetByEmail", tenantID, email)
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, tenant_id, email, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.TenantID, user.Email, user.Name)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *UserRepository) scan(row scanner, op, tenantID, key string) (*models.User, error) {
	var user models.User

	err := row.Scan(&user.ID, &user.TenantID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError(op, "user", tenantID, key, persistence.ErrUserNotFound)
		}

		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
