// Package main provides autopilot-emit, a CLI that pushes a trigger event onto the worker's
// Redis ingress queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/receivers/queue"
	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "autopilot-emit",
		Usage:                 "Push a trigger event to the autopilot worker",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis URL of the trigger ingress list",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis list holding trigger envelopes",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("EVENT_QUEUE"),
			},
			&cli.StringFlag{
				Name:     "trigger-type",
				Aliases:  []string{"t"},
				Usage:    "Trigger type, e.g. contact_created or deal_stage_changed",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "tenant-id",
				Usage:    "Tenant owning the event",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Trigger data as a JSON object",
				Value: "{}",
			},
		},
		Action: emit,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func emit(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("autopilot-emit")

	envelope, err := envelopeFromFlags(command)
	if err != nil {
		return err
	}

	client, err := queue.NewClient(ctx, command.String("redis-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close redis client", "error", err)
		}
	}()

	if err := queue.Push(ctx, client, command.String("queue"), envelope); err != nil {
		return err
	}

	logger.Info("Trigger event queued",
		"trigger_type", envelope.TriggerType,
		"tenant_id", envelope.TenantID,
		"queue", command.String("queue"))

	return nil
}

func envelopeFromFlags(command *cli.Command) (queue.Envelope, error) {
	var data map[string]any

	if err := json.Unmarshal([]byte(command.String("data")), &data); err != nil {
		return queue.Envelope{}, fmt.Errorf("failed to parse --data as a JSON object: %w", err)
	}

	envelope := queue.Envelope{
		TriggerType: models.TriggerType(command.String("trigger-type")),
		TriggerData: data,
		TenantID:    command.String("tenant-id"),
	}

	return envelope, envelope.Validate()
}
