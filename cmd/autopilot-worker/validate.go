package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/autopilot/pkg/cmd"
	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/registry"
	"github.com/dukex/autopilot/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage: "Validate stored workflows against the component catalog",
		Flags: append(configFlags(),
			&cli.StringFlag{
				Name:  "tenant-id",
				Usage: "Only validate the workflows of this tenant",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}

			log.Setup(cfg.LogLevel, cfg.LogFormat)
			logger := log.WithModule("autopilot-validate")

			store, err := cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			var workflows []*models.Workflow

			if tenantID := command.String("tenant-id"); tenantID != "" {
				workflows, err = store.Workflows().GetAllByTenant(ctx, tenantID)
			} else {
				workflows, err = store.Workflows().GetAll(ctx)
			}

			if err != nil {
				return fmt.Errorf("failed to load workflows: %w", err)
			}

			if err := workflow.ValidateAll(workflows, registry.NewDefaultRegistry(logger)); err != nil {
				fmt.Fprintln(os.Stderr, err)

				return fmt.Errorf("%w among %d workflows", ErrInvalidWorkflows, len(workflows))
			}

			fmt.Printf("%d workflows valid\n", len(workflows))

			return nil
		},
	}
}
