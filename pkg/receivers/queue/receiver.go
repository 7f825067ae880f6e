// Package queue provides the Redis list ingress for trigger events.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/autopilot/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	DefaultQueue = "autopilot:triggers"
	popTimeout   = 1 * time.Second
)

var (
	ErrQueueRequired    = errors.New("queue name is required")
	ErrTenantRequired   = errors.New("envelope tenant_id is required")
	ErrTriggerRequired  = errors.New("envelope trigger_type is required")
	ErrReceiverStarted  = errors.New("receiver already started")
	errMalformedMessage = errors.New("malformed envelope")
)

// Envelope is the message external producers push onto the trigger list.
type Envelope struct {
	TriggerType models.TriggerType `json:"trigger_type"`
	TriggerData map[string]any     `json:"trigger_data"`
	TenantID    string             `json:"tenant_id"`
}

func (e Envelope) Validate() error {
	if e.TenantID == "" {
		return ErrTenantRequired
	}

	// unknown types pass: workflows keyed to them match by default
	if e.TriggerType == "" {
		return ErrTriggerRequired
	}

	return nil
}

// TriggerEvent converts the envelope into a depth-0 event.
func (e Envelope) TriggerEvent() models.TriggerEvent {
	data := e.TriggerData
	if data == nil {
		data = map[string]any{}
	}

	return models.TriggerEvent{Type: e.TriggerType, Data: data, TenantID: e.TenantID}
}

// Decode parses and validates one message.
func Decode(message string) (Envelope, error) {
	var envelope Envelope

	if err := json.Unmarshal([]byte(message), &envelope); err != nil {
		return envelope, fmt.Errorf("%w: %w", errMalformedMessage, err)
	}

	if err := envelope.Validate(); err != nil {
		return envelope, err
	}

	return envelope, nil
}

// Dispatcher receives decoded events. Fire must not block on the run.
type Dispatcher interface {
	Fire(ctx context.Context, event models.TriggerEvent)
}

// NewClient connects to the Redis instance at redisURL (redis://[:password@]host:port/db).
func NewClient(ctx context.Context, redisURL string) (redis.UniversalClient, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Push appends an envelope to the queue.
func Push(ctx context.Context, client redis.UniversalClient, queue string, envelope Envelope) error {
	if err := envelope.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	if err := client.RPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push envelope: %w", err)
	}

	return nil
}

// Receiver pops envelopes with BLPOP and fires them on the dispatcher.
type Receiver struct {
	client     redis.UniversalClient
	queue      string
	dispatcher Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewReceiver(client redis.UniversalClient, queue string, dispatcher Dispatcher, logger *slog.Logger) (*Receiver, error) {
	if queue == "" {
		return nil, ErrQueueRequired
	}

	return &Receiver{
		client:     client,
		queue:      queue,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_receiver",
			"queue", queue,
		),
	}, nil
}

func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrReceiverStarted
	}

	r.started = true

	r.logger.InfoContext(ctx, "Starting queue receiver")

	r.wg.Add(1)

	go r.consume(ctx, r.stopCh)

	return nil
}

func (r *Receiver) consume(ctx context.Context, stopCh <-chan struct{}) {
	defer r.wg.Done()

	for {
		select {
		case <-stopCh:
			r.logger.InfoContext(ctx, "Queue receiver stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue receiver")

			return
		default:
			if err := r.processMessage(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)

				select {
				case <-time.After(time.Second):
				case <-stopCh:
				case <-ctx.Done():
				}
			}
		}
	}
}

// processMessage handles at most one envelope. Malformed envelopes are logged and dropped.
func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, popTimeout, r.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	envelope, err := Decode(result[1])
	if err != nil {
		r.logger.WarnContext(ctx, "Dropping invalid trigger envelope", "error", err)

		return nil
	}

	if !envelope.TriggerType.Valid() {
		r.logger.WarnContext(ctx, "Received envelope with unknown trigger type", "trigger_type", envelope.TriggerType)
	}

	r.logger.InfoContext(ctx, "Received trigger envelope",
		"trigger_type", envelope.TriggerType,
		"tenant_id", envelope.TenantID)

	r.dispatcher.Fire(ctx, envelope.TriggerEvent())

	return nil
}

// Stop ends the consumer loop and waits for it. The client stays open; its owner closes it.
func (r *Receiver) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}

	r.logger.InfoContext(ctx, "Stopping queue receiver")

	close(r.stopCh)
	r.wg.Wait()
	r.started = false
	r.stopCh = make(chan struct{})

	return nil
}
