package main

import (
	"fmt"

	"github.com/dukex/autopilot/pkg/config"
	cli "github.com/urfave/cli/v3"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to an optional YAML configuration file",
			Sources: cli.EnvVars("AUTOPILOT_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL (memory:// or postgres://...)",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

func runFlags() []cli.Flag {
	return append(configFlags(),
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL of the trigger ingress list; ingress is disabled when empty",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "event-queue",
			Usage:   "Redis list holding trigger envelopes",
			Sources: cli.EnvVars("EVENT_QUEUE"),
		},
		&cli.StringFlag{
			Name:    "chat-service-url",
			Usage:   "Base URL of the chat service for conversation metadata updates",
			Sources: cli.EnvVars("CHAT_SERVICE_URL"),
		},
		&cli.StringFlag{
			Name:    "mail-service-url",
			Usage:   "Base URL of the internal mail service",
			Sources: cli.EnvVars("MAIL_SERVICE_URL"),
		},
		&cli.StringFlag{
			Name:    "internal-service-token",
			Usage:   "Bearer token for internal service calls",
			Sources: cli.EnvVars("INTERNAL_SERVICE_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host; direct SMTP delivery is used when set",
			Sources: cli.EnvVars("SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Usage:   "SMTP port",
			Sources: cli.EnvVars("SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.EnvVars("SMTP_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.EnvVars("SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: cli.EnvVars("SMTP_FROM"),
		},
		&cli.IntFlag{
			Name:    "max-chain-depth",
			Usage:   "Maximum depth of chained trigger events (0 disables chaining)",
			Sources: cli.EnvVars("MAX_CHAIN_DEPTH"),
		},
		&cli.IntFlag{
			Name:    "dispatch-concurrency",
			Usage:   "Workflows run concurrently per trigger event",
			Sources: cli.EnvVars("DISPATCH_CONCURRENCY"),
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port of the health and metrics server",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	)
}

// loadConfig reads the optional config file and applies every flag that was set.
func loadConfig(command *cli.Command) (config.EngineConfig, error) {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return cfg, err
	}

	stringFlags := map[string]*string{
		"database-url":           &cfg.DatabaseURL,
		"log-level":              &cfg.LogLevel,
		"log-format":             &cfg.LogFormat,
		"event-bus":              &cfg.EventBus,
		"kafka-brokers":          &cfg.KafkaBrokers,
		"redis-url":              &cfg.RedisURL,
		"event-queue":            &cfg.EventQueue,
		"chat-service-url":       &cfg.ChatServiceURL,
		"mail-service-url":       &cfg.MailServiceURL,
		"internal-service-token": &cfg.InternalServiceToken,
		"smtp-host":              &cfg.SMTP.Host,
		"smtp-username":          &cfg.SMTP.Username,
		"smtp-password":          &cfg.SMTP.Password,
		"smtp-from":              &cfg.SMTP.From,
	}

	for name, target := range stringFlags {
		if hasFlag(command, name) && command.IsSet(name) {
			*target = command.String(name)
		}
	}

	intFlags := map[string]*int{
		"smtp-port":            &cfg.SMTP.Port,
		"max-chain-depth":      &cfg.MaxChainDepth,
		"dispatch-concurrency": &cfg.DispatchConcurrency,
		"port":                 &cfg.Port,
	}

	for name, target := range intFlags {
		if hasFlag(command, name) && command.IsSet(name) {
			*target = command.Int(name)
		}
	}

	if hasFlag(command, "tracing") && command.IsSet("tracing") {
		cfg.Tracing = command.Bool("tracing")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

func hasFlag(command *cli.Command, name string) bool {
	for _, flag := range command.Flags {
		for _, flagName := range flag.Names() {
			if flagName == name {
				return true
			}
		}
	}

	return false
}
