// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflows     *WorkflowRepository
	executions    *ExecutionRepository
	contacts      *ContactRepository
	deals         *DealRepository
	users         *UserRepository
	notifications *NotificationRepository
}

// NewPersistence connects, pings and migrates the database.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		workflows:     NewWorkflowRepository(database, logger),
		executions:    NewExecutionRepository(database, logger),
		contacts:      NewContactRepository(database, logger),
		deals:         NewDealRepository(database, logger),
		users:         NewUserRepository(database, logger),
		notifications: NewNotificationRepository(database, logger),
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository         { return p.workflows }
func (p *Persistence) Executions() persistence.ExecutionRepository       { return p.executions }
func (p *Persistence) Contacts() persistence.ContactRepository           { return p.contacts }
func (p *Persistence) Deals() persistence.DealRepository                 { return p.deals }
func (p *Persistence) Users() persistence.UserRepository                 { return p.users }
func (p *Persistence) Notifications() persistence.NotificationRepository { return p.notifications }

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
