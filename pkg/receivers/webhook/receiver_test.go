package webhook_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/receivers/webhook"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []models.TriggerEvent
}

func (d *recordingDispatcher) Fire(_ context.Context, event models.TriggerEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)
}

func setupApp(token string) (*fiber.App, *recordingDispatcher) {
	dispatcher := &recordingDispatcher{}
	app := fiber.New()
	webhook.NewReceiver(dispatcher, token, log.Discard()).Register(app)

	return app, dispatcher
}

func post(t *testing.T, app *fiber.App, target, body, token string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp.StatusCode
}

func TestReceiver_Webhook(t *testing.T) {
	app, dispatcher := setupApp("")

	status := post(t, app, "/webhooks/tenant-1?source=stripe", `{"contact_id":"c-1","amount":12}`, "")
	assert.Equal(t, http.StatusAccepted, status)

	require.Len(t, dispatcher.events, 1)
	event := dispatcher.events[0]
	assert.Equal(t, models.TriggerWebhook, event.Type)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, 0, event.Depth)
	assert.Equal(t, "c-1", event.Data["contact_id"])
	assert.Equal(t, map[string]string{"source": "stripe"}, event.Data["query"])
}

func TestReceiver_WebhookEmptyBody(t *testing.T) {
	app, dispatcher := setupApp("")

	assert.Equal(t, http.StatusAccepted, post(t, app, "/webhooks/tenant-1", "", ""))
	require.Len(t, dispatcher.events, 1)
	assert.Empty(t, dispatcher.events[0].Data)
}

func TestReceiver_Trigger(t *testing.T) {
	app, dispatcher := setupApp("")

	body := `{"trigger_type":"deal_stage_changed","tenant_id":"tenant-1","trigger_data":{"to_stage":"won"}}`
	assert.Equal(t, http.StatusAccepted, post(t, app, "/triggers", body, ""))

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.TriggerDealStageChanged, dispatcher.events[0].Type)
	assert.Equal(t, "won", dispatcher.events[0].Data["to_stage"])
}

func TestReceiver_TriggerUnknownType(t *testing.T) {
	app, dispatcher := setupApp("")

	body := `{"trigger_type":"calendar_booked","tenant_id":"tenant-1"}`
	assert.Equal(t, http.StatusAccepted, post(t, app, "/triggers", body, ""))

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.TriggerType("calendar_booked"), dispatcher.events[0].Type)
}

func TestReceiver_RejectsBadRequests(t *testing.T) {
	app, dispatcher := setupApp("")

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{name: "webhook body is an array", target: "/webhooks/tenant-1", body: `[1,2]`},
		{name: "malformed envelope", target: "/triggers", body: `{"trigger_type":`},
		{name: "missing trigger type", target: "/triggers", body: `{"tenant_id":"tenant-1"}`},
		{name: "missing tenant", target: "/triggers", body: `{"trigger_type":"webhook"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(t, app, tt.target, tt.body, ""))
		})
	}

	assert.Empty(t, dispatcher.events)
}

func TestReceiver_Token(t *testing.T) {
	app, dispatcher := setupApp("s3cret")

	assert.Equal(t, http.StatusUnauthorized, post(t, app, "/webhooks/tenant-1", `{}`, ""))
	assert.Equal(t, http.StatusUnauthorized, post(t, app, "/webhooks/tenant-1", `{}`, "wrong"))
	assert.Equal(t, http.StatusAccepted, post(t, app, "/webhooks/tenant-1", `{}`, "s3cret"))

	assert.Len(t, dispatcher.events, 1)
}
