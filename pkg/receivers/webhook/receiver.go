// Package webhook provides the HTTP ingress for trigger events: inbound webhooks and
// envelopes posted by internal producers.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/receivers/queue"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// Dispatcher accepts trigger events without waiting for the runs.
type Dispatcher interface {
	Fire(ctx context.Context, event models.TriggerEvent)
}

type Receiver struct {
	dispatcher Dispatcher
	token      string
	logger     *slog.Logger
}

// NewReceiver returns a receiver that requires "Authorization: Bearer <token>" on every
// request when token is not empty.
func NewReceiver(dispatcher Dispatcher, token string, logger *slog.Logger) *Receiver {
	return &Receiver{
		dispatcher: dispatcher,
		token:      token,
		logger:     logger.With("module", "webhook_receiver"),
	}
}

func (r *Receiver) Register(router fiber.Router) {
	router.Post("/webhooks/:tenant_id", r.HandleWebhook)
	router.Post("/triggers", r.HandleTrigger)
}

// HandleWebhook fires a webhook trigger for the tenant in the path. The JSON body becomes
// the trigger data; the query string is kept under "query".
func (r *Receiver) HandleWebhook(c fiber.Ctx) error {
	if !r.authorized(c) {
		return unauthorized(c)
	}

	data := map[string]any{}

	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return badRequest(c, "webhook body must be a JSON object")
		}
	}

	// fiber strings are only valid inside the handler and the run outlives it
	if query := c.Queries(); len(query) > 0 {
		copied := make(map[string]string, len(query))
		for key, value := range query {
			copied[strings.Clone(key)] = strings.Clone(value)
		}

		data["query"] = copied
	}

	envelope := queue.Envelope{
		TriggerType: models.TriggerWebhook,
		TriggerData: data,
		TenantID:    strings.Clone(c.Params("tenant_id")),
	}

	return r.fire(c, envelope)
}

// HandleTrigger accepts the same envelope as the Redis ingress list.
func (r *Receiver) HandleTrigger(c fiber.Ctx) error {
	if !r.authorized(c) {
		return unauthorized(c)
	}

	envelope, err := queue.Decode(string(c.Body()))
	if err != nil {
		return badRequest(c, err.Error())
	}

	return r.fire(c, envelope)
}

func (r *Receiver) fire(c fiber.Ctx, envelope queue.Envelope) error {
	if err := envelope.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	r.logger.Info("Received trigger over HTTP",
		"trigger_type", envelope.TriggerType,
		"tenant_id", envelope.TenantID)

	r.dispatcher.Fire(context.Background(), envelope.TriggerEvent())

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (r *Receiver) authorized(c fiber.Ctx) bool {
	if r.token == "" {
		return true
	}

	given, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")

	return ok && subtle.ConstantTimeCompare([]byte(given), []byte(r.token)) == 1
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx) error {
	problem := problems.NewStatusProblem(fiber.StatusUnauthorized).
		WithInstance(c.Path()).
		WithType("unauthorized")

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}
