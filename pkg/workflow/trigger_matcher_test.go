package workflow

import (
	"testing"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTriggerMatcher_Match(t *testing.T) {
	matcher := NewTriggerMatcher(log.Discard())

	tests := []struct {
		name        string
		triggerType models.TriggerType
		config      map[string]any
		data        map[string]any
		want        bool
	}{
		{
			name:        "purchase intent above threshold",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"confidence_threshold": 0.8},
			data:        map[string]any{"confidence": 0.95},
			want:        true,
		},
		{
			name:        "purchase intent below threshold",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"confidence_threshold": 0.8},
			data:        map[string]any{"confidence": 0.75},
			want:        false,
		},
		{
			name:        "purchase intent default threshold",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{},
			data:        map[string]any{"confidence": 0.79},
			want:        false,
		},
		{
			name:        "purchase intent missing confidence",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"confidence_threshold": 0.1},
			data:        map[string]any{},
			want:        false,
		},
		{
			name:        "purchase intent type mismatch",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"intent_type": "upgrade"},
			data:        map[string]any{"intent": "purchase", "confidence": 0.99},
			want:        false,
		},
		{
			name:        "purchase intent type alias",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"intent_type": "upgrade"},
			data:        map[string]any{"intent_type": "upgrade", "confidence": "0.9"},
			want:        true,
		},
		{
			name:        "conversation started channel",
			triggerType: models.TriggerConversationStarted,
			config:      map[string]any{"channel": "whatsapp", "agent_id": "agent-1"},
			data:        map[string]any{"channel": "whatsapp", "agent_id": "agent-1"},
			want:        true,
		},
		{
			name:        "conversation started wrong agent",
			triggerType: models.TriggerConversationStarted,
			config:      map[string]any{"agent_id": "agent-1"},
			data:        map[string]any{"agent_id": "agent-2"},
			want:        false,
		},
		{
			name:        "conversation ended long enough",
			triggerType: models.TriggerConversationEnded,
			config:      map[string]any{"min_duration": 60},
			data:        map[string]any{"duration_seconds": 120},
			want:        true,
		},
		{
			name:        "conversation ended too short",
			triggerType: models.TriggerConversationEnded,
			config:      map[string]any{"min_duration": 60},
			data:        map[string]any{"duration": 30},
			want:        false,
		},
		{
			name:        "contact created source",
			triggerType: models.TriggerContactCreated,
			config:      map[string]any{"source": "chat"},
			data:        map[string]any{"source": "import"},
			want:        false,
		},
		{
			name:        "contact updated watched field",
			triggerType: models.TriggerContactUpdated,
			config:      map[string]any{"fields_changed": []any{"email", "phone"}},
			data:        map[string]any{"changed_fields": []any{"phone"}},
			want:        true,
		},
		{
			name:        "contact updated unrelated field",
			triggerType: models.TriggerContactUpdated,
			config:      map[string]any{"fields_changed": []any{"email"}},
			data:        map[string]any{"fields_changed": []string{"company"}},
			want:        false,
		},
		{
			name:        "deal created minimum value",
			triggerType: models.TriggerDealCreated,
			config:      map[string]any{"min_value": 500, "stage": "lead"},
			data:        map[string]any{"value": 750, "stage": "lead"},
			want:        true,
		},
		{
			name:        "deal created below minimum value",
			triggerType: models.TriggerDealCreated,
			config:      map[string]any{"min_value": 500},
			data:        map[string]any{"value": 100},
			want:        false,
		},
		{
			name:        "deal stage changed to won",
			triggerType: models.TriggerDealStageChanged,
			config:      map[string]any{"from_stage": "negotiation", "to_stage": "won"},
			data:        map[string]any{"from_stage": "negotiation", "to_stage": "won", "deal_id": "d-1"},
			want:        true,
		},
		{
			name:        "deal stage changed to lost",
			triggerType: models.TriggerDealStageChanged,
			config:      map[string]any{"to_stage": "won"},
			data:        map[string]any{"to_stage": "lost"},
			want:        false,
		},
		{
			name:        "message keyword case insensitive",
			triggerType: models.TriggerMessageReceived,
			config:      map[string]any{"keywords": []any{"pricing", "Refund"}},
			data:        map[string]any{"content": "I want a REFUND please"},
			want:        true,
		},
		{
			name:        "message without keywords",
			triggerType: models.TriggerMessageReceived,
			config:      map[string]any{"keywords": []any{"pricing"}},
			data:        map[string]any{"message": "hello there"},
			want:        false,
		},
		{
			name:        "webhook always matches",
			triggerType: models.TriggerWebhook,
			config:      map[string]any{"anything": "goes"},
			data:        map[string]any{},
			want:        true,
		},
		{
			name:        "unknown trigger type matches",
			triggerType: "calendar_booked",
			config:      map[string]any{},
			data:        map[string]any{},
			want:        true,
		},
		{
			name:        "webhook ignores malformed config",
			triggerType: models.TriggerWebhook,
			config:      map[string]any{"keywords": map[string]any{"nested": true}, "min_value": "big"},
			data:        map[string]any{},
			want:        true,
		},
		{
			name:        "unknown trigger type ignores malformed config",
			triggerType: "calendar_booked",
			config:      map[string]any{"min_value": "big"},
			data:        map[string]any{},
			want:        true,
		},
		{
			name:        "purchase intent threshold as string",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"confidence_threshold": "0.8"},
			data:        map[string]any{"confidence": 0.95},
			want:        true,
		},
		{
			name:        "purchase intent string threshold still applies",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"confidence_threshold": "0.8"},
			data:        map[string]any{"confidence": 0.75},
			want:        false,
		},
		{
			name:        "deal created minimum value as string",
			triggerType: models.TriggerDealCreated,
			config:      map[string]any{"min_value": "1000"},
			data:        map[string]any{"value": 5000},
			want:        true,
		},
		{
			name:        "deal created ignores keys it does not read",
			triggerType: models.TriggerDealCreated,
			config:      map[string]any{"confidence_threshold": "high", "keywords": map[string]any{}},
			data:        map[string]any{"value": 10},
			want:        true,
		},
		{
			name:        "message keyword as single string",
			triggerType: models.TriggerMessageReceived,
			config:      map[string]any{"keywords": "pricing plan"},
			data:        map[string]any{"message": "what is your pricing plan?"},
			want:        true,
		},
		{
			name:        "invalid trigger config rejects",
			triggerType: models.TriggerPurchaseIntent,
			config:      map[string]any{"confidence_threshold": "high"},
			data:        map[string]any{"confidence": 0.99},
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := testutil.CreateTestWorkflow(testutil.WithTrigger(tt.triggerType, tt.config))

			result := matcher.Match(workflow, workflow.Nodes[0], tt.data)
			assert.Equal(t, tt.want, result.Matched)
			assert.Equal(t, tt.want, matcher.Matches(workflow, workflow.Nodes[0], tt.data))

			if !tt.want {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}
