package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/notify"
	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/google/uuid"
)

func (e *Executor) sendNotification(ctx context.Context, c models.SendNotificationConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	to := strings.TrimSpace(e.render(ctx, ectx, c.To))

	user, result, err := e.recipient(ctx, ectx.TenantID, to)
	if user == nil {
		return result, err
	}

	notificationType := c.NotificationType
	if notificationType == "" {
		notificationType = models.NotificationInApp
	}

	notification := &models.Notification{
		TenantID: ectx.TenantID,
		UserID:   user.ID,
		Title:    e.render(ctx, ectx, c.Title),
		Message:  e.render(ctx, ectx, c.Message),
		Link:     strings.TrimSpace(e.render(ctx, ectx, c.Link)),
		Type:     notificationType,
		Metadata: map[string]any{"execution_id": ectx.ExecutionID},
	}

	if ectx.Workflow != nil {
		notification.Metadata["workflow_id"] = ectx.Workflow.ID
	}

	if err := e.notifications.Create(ctx, notification); err != nil {
		return models.NodeExecutionResult{}, fmt.Errorf("failed to create notification: %w", err)
	}

	output := map[string]any{
		"notification_id": notification.ID,
		"user_id":         user.ID,
		"email_sent":      false,
	}

	if notificationType == models.NotificationEmail {
		err := e.mailer.Send(ctx, notify.Email{
			To:      user.Email,
			Subject: notification.Title,
			Body:    notification.Message,
			Link:    notification.Link,
		})
		if err != nil {
			e.logger.WarnContext(ctx, "Email notification failed, in-app notification kept",
				"user_id", user.ID,
				"execution_id", ectx.ExecutionID,
				"error", err)

			output["email_error"] = err.Error()
		} else {
			output["email_sent"] = true
		}
	}

	return models.Succeeded(output), nil
}

// recipient resolves a user id or a tenant user's email. A nil user comes with the result to return.
func (e *Executor) recipient(ctx context.Context, tenantID, to string) (*models.User, models.NodeExecutionResult, error) {
	var (
		user *models.User
		err  error
	)

	switch {
	case to == "":
		return nil, models.Failed("Notification recipient is required"), nil
	case isUUID(to):
		user, err = e.users.GetByID(ctx, tenantID, to)
	case strings.Contains(to, "@"):
		user, err = e.users.GetByEmail(ctx, tenantID, to)
	default:
		return nil, models.Failed(fmt.Sprintf("Invalid notification recipient: %s", to)), nil
	}

	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, notFound("User", to), nil
		}

		return nil, models.NodeExecutionResult{}, fmt.Errorf("failed to load notification recipient: %w", err)
	}

	return user, models.NodeExecutionResult{}, nil
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)

	return err == nil
}
