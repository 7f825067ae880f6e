package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the worker and execute workflows for incoming trigger events",
		Flags:   runFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}

			log.Setup(cfg.LogLevel, cfg.LogFormat)

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule(serviceName)

			logger.Info("Initializing Autopilot Worker", "worker_id", workerID)

			worker, err := NewWorker(ctx, workerID, cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := worker.Start(ctx); err != nil {
				_ = worker.Shutdown(context.WithoutCancel(ctx))

				return err
			}

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			return worker.Shutdown(shutdownCtx)
		},
	}
}
