package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/autopilot/pkg/actions"
	"github.com/dukex/autopilot/pkg/cmd"
	"github.com/dukex/autopilot/pkg/config"
	"github.com/dukex/autopilot/pkg/conversations"
	"github.com/dukex/autopilot/pkg/eventbus"
	"github.com/dukex/autopilot/pkg/events"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/notify"
	"github.com/dukex/autopilot/pkg/otelhelper"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/receivers/queue"
	"github.com/dukex/autopilot/pkg/receivers/webhook"
	"github.com/dukex/autopilot/pkg/registry"
	"github.com/dukex/autopilot/pkg/web"
	"github.com/dukex/autopilot/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName     = "autopilot-worker"
	shutdownTimeout = 10 * time.Second
)

// Worker owns every long-lived component of a running engine.
type Worker struct {
	id     string
	config config.EngineConfig
	logger *slog.Logger

	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *registry.Registry
	metrics     *prometheus.Registry
	dispatcher  *workflow.Dispatcher
	redis       redis.UniversalClient
	receiver    *queue.Receiver
	app         *fiber.App

	tracerShutdown func(context.Context) error
}

// NewWorker builds the engine described by cfg. Close releases what it opened.
func NewWorker(ctx context.Context, id string, cfg config.EngineConfig, logger *slog.Logger) (*Worker, error) {
	w := &Worker{
		id:             id,
		config:         cfg,
		logger:         logger.With("module", serviceName, "worker_id", id),
		tracerShutdown: func(context.Context) error { return nil },
	}

	tracer := otelhelper.NoopTracer()

	if cfg.Tracing {
		t, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		tracer, w.tracerShutdown = t, shutdown
	}

	p, err := cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	w.persistence = p

	bus, err := cmd.NewEventBus(cfg.EventBus, cfg.KafkaBrokers, serviceName, logger)
	if err != nil {
		_ = p.Close(ctx)

		return nil, err
	}

	w.eventBus = bus

	w.metrics = prometheus.NewRegistry()
	w.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(w.metrics)

	w.registry = registry.NewDefaultRegistry(logger)
	w.dispatcher = w.buildDispatcher(tracer, m)

	if cfg.RedisURL != "" {
		client, err := queue.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = w.Close(ctx)

			return nil, err
		}

		w.redis = client

		w.receiver, err = queue.NewReceiver(client, cfg.EventQueue, w.dispatcher, logger)
		if err != nil {
			_ = w.Close(ctx)

			return nil, err
		}
	}

	w.app = web.NewApp(web.NewHandlers(w.persistence, w.registry, logger), w.metrics)
	webhook.NewReceiver(w.dispatcher, cfg.InternalServiceToken, logger).Register(w.app)

	return w, nil
}

func (w *Worker) buildDispatcher(tracer trace.Tracer, m *metrics.Metrics) *workflow.Dispatcher {
	cfg := w.config

	var mailer notify.Mailer

	switch {
	case cfg.SMTPEnabled():
		mailer = notify.NewSMTPMailer(cfg.SMTP)
	case cfg.MailServiceURL != "":
		mailer = notify.NewServiceMailer(cfg.MailServiceURL, cfg.InternalServiceToken, w.logger)
	default:
		w.logger.Warn("No mail transport configured, send_notification will only store notifications")
	}

	var chat actions.ConversationUpdater
	if cfg.ChatServiceURL != "" {
		chat = conversations.NewClient(cfg.ChatServiceURL, cfg.InternalServiceToken, w.logger)
	}

	resolver := workflow.NewFieldResolver(w.persistence.Contacts(), w.persistence.Deals(), w.logger)
	runner := actions.NewExecutor(w.persistence, resolver, workflow.NewBusEmitter(w.eventBus, m), mailer, chat, w.logger)

	processor := workflow.NewProcessor(workflow.NewConditionEvaluator(resolver, w.logger), runner, tracer, m, w.logger)
	executor := workflow.NewExecutor(
		workflow.NewTriggerMatcher(w.logger),
		workflow.NewWalker(processor, w.logger),
		workflow.NewRecorder(w.persistence.Executions(), w.eventBus, m, w.logger),
		tracer,
		w.logger,
	)

	return workflow.NewDispatcher(w.persistence.Workflows(), executor, m, w.logger, cfg.DispatchConcurrency, cfg.MaxChainDepth)
}

// Start subscribes to the event bus and starts the ingress consumer. It returns once
// everything is listening; the HTTP server runs until Shutdown.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker",
		"event_bus", w.config.EventBus,
		"max_chain_depth", w.config.MaxChainDepth,
		"dispatch_concurrency", w.config.DispatchConcurrency)

	if err := w.subscribe(ctx); err != nil {
		return err
	}

	if w.receiver != nil {
		if err := w.receiver.Start(ctx); err != nil {
			return fmt.Errorf("failed to start queue receiver: %w", err)
		}
	}

	go func() {
		err := w.app.Listen(":"+strconv.Itoa(w.config.Port), fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil {
			w.logger.ErrorContext(ctx, "HTTP server stopped", "error", err)
		}
	}()

	w.logger.InfoContext(ctx, "Worker started successfully", "port", w.config.Port)

	return nil
}

func (w *Worker) subscribe(ctx context.Context) error {
	if err := w.eventBus.Handle(events.TriggerFiredEvent, w.dispatcher.HandleTriggerFired); err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	return nil
}

// Shutdown stops accepting work, waits for in-flight runs and closes the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Shutting down worker...")

	var errs []error

	if w.receiver != nil {
		if err := w.receiver.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop queue receiver: %w", err))
		}
	}

	if err := w.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
	}

	w.dispatcher.Wait()

	errs = append(errs, w.Close(ctx))

	return errors.Join(errs...)
}

// Close releases the connections opened by NewWorker.
func (w *Worker) Close(ctx context.Context) error {
	var errs []error

	if w.redis != nil {
		if err := w.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if err := w.eventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
	}

	if err := w.persistence.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close persistence: %w", err))
	}

	if err := w.tracerShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracer: %w", err))
	}

	return errors.Join(errs...)
}
