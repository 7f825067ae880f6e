package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr error
	}{
		{
			name:    "valid",
			message: `{"trigger_type":"message_received","tenant_id":"tenant-1","trigger_data":{"message":"hi"}}`,
		},
		{
			name:    "missing tenant",
			message: `{"trigger_type":"message_received","trigger_data":{}}`,
			wantErr: ErrTenantRequired,
		},
		{
			name:    "missing trigger type",
			message: `{"tenant_id":"tenant-1","trigger_data":{}}`,
			wantErr: ErrTriggerRequired,
		},
		{
			name:    "not json",
			message: `hello`,
			wantErr: errMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := Decode(tt.message)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.TriggerMessageReceived, envelope.TriggerType)
			assert.Equal(t, "hi", envelope.TriggerData["message"])
		})
	}
}

func TestDecode_UnknownTriggerTypePasses(t *testing.T) {
	envelope, err := Decode(`{"trigger_type":"calendar_booked","tenant_id":"tenant-1"}`)
	require.NoError(t, err)

	assert.Equal(t, models.TriggerType("calendar_booked"), envelope.TriggerType)
	assert.Equal(t, map[string]any{}, envelope.TriggerEvent().Data)
}

func TestEnvelope_TriggerEvent(t *testing.T) {
	event := Envelope{TriggerType: models.TriggerWebhook, TenantID: "tenant-1"}.TriggerEvent()

	assert.Equal(t, models.TriggerWebhook, event.Type)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Zero(t, event.Depth)
	assert.NotNil(t, event.Data)
}

func TestNewReceiver_RequiresQueue(t *testing.T) {
	_, err := NewReceiver(nil, "", nil, log.Discard())
	assert.ErrorIs(t, err, ErrQueueRequired)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []models.TriggerEvent
}

func (d *recordingDispatcher) Fire(_ context.Context, event models.TriggerEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)
}

func (d *recordingDispatcher) received() []models.TriggerEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]models.TriggerEvent(nil), d.events...)
}

func TestReceiver_ConsumesEnvelopes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewClient(ctx, "redis://"+endpoint+"/0")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	dispatcher := &recordingDispatcher{}

	receiver, err := NewReceiver(client, "test:triggers", dispatcher, log.Discard())
	require.NoError(t, err)
	require.NoError(t, receiver.Start(ctx))
	assert.ErrorIs(t, receiver.Start(ctx), ErrReceiverStarted)

	require.NoError(t, client.RPush(ctx, "test:triggers", "not an envelope").Err())
	require.NoError(t, Push(ctx, client, "test:triggers", Envelope{
		TriggerType: models.TriggerContactCreated,
		TriggerData: map[string]any{"contact_id": "c-1"},
		TenantID:    "tenant-1",
	}))

	assert.Eventually(t, func() bool {
		return len(dispatcher.received()) == 1
	}, 10*time.Second, 50*time.Millisecond)

	event := dispatcher.received()[0]
	assert.Equal(t, models.TriggerContactCreated, event.Type)
	assert.Equal(t, "c-1", event.Data["contact_id"])

	require.NoError(t, receiver.Stop(ctx))
	require.NoError(t, receiver.Stop(ctx))
}

func TestPush_RejectsInvalidEnvelope(t *testing.T) {
	err := Push(context.Background(), nil, "q", Envelope{TriggerType: models.TriggerWebhook})
	assert.ErrorIs(t, err, ErrTenantRequired)
}
