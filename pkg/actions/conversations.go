package actions

import (
	"context"
	"fmt"

	"github.com/dukex/autopilot/pkg/models"
)

const maxErrorLength = 500

func (e *Executor) updateConversationMetadata(ctx context.Context, c models.UpdateConversationMetadataConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	conversationID := e.resolveID(ctx, ectx, c.ConversationID, ectx.ConversationID)
	if conversationID == "" {
		return models.Failed("Conversation ID is required to update metadata"), nil
	}

	if e.conversations == nil {
		return models.Failed("Conversation service is not configured"), nil
	}

	metadata := e.renderValues(ctx, ectx, c.Metadata)

	if err := e.conversations.UpdateMetadata(ctx, conversationID, metadata); err != nil {
		message := err.Error()
		if len(message) > maxErrorLength {
			message = message[:maxErrorLength]
		}

		return models.Failed(fmt.Sprintf("Failed to update conversation metadata: %s", message)), nil
	}

	return models.Succeeded(map[string]any{
		"conversation_id": conversationID,
		"metadata":        metadata,
	}), nil
}
