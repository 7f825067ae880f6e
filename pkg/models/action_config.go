package models

import "fmt"

type ActionType string

const (
	ActionCreateDeal                 ActionType = "create_deal"
	ActionUpdateContact              ActionType = "update_contact"
	ActionUpdateDeal                 ActionType = "update_deal"
	ActionAddTag                     ActionType = "add_tag"
	ActionSendNotification           ActionType = "send_notification"
	ActionSendWebhook                ActionType = "send_webhook"
	ActionUpdateConversationMetadata ActionType = "update_conversation_metadata"
)

// ActionConfig is the typed config of an action node.
type ActionConfig interface {
	NodeConfig
	ActionType() ActionType
}

// CreateDealConfig string fields may hold {{path}} templates. Value is either a number
// or a template string.
type CreateDealConfig struct {
	Title             string         `json:"title"               validate:"required"`
	Value             any            `json:"value"`
	Currency          string         `json:"currency"`
	Stage             string         `json:"stage"`
	ContactID         string         `json:"contact_id"`
	ExpectedCloseDate string         `json:"expected_close_date"`
	Metadata          map[string]any `json:"metadata"`
}

func (CreateDealConfig) Kind() NodeKind { return NodeKindAction }

func (CreateDealConfig) ActionType() ActionType { return ActionCreateDeal }

type UpdateContactConfig struct {
	ContactID string         `json:"contact_id"`
	Fields    map[string]any `json:"fields"`
	Metadata  map[string]any `json:"metadata"`
	AddTags   []string       `json:"add_tags"`
}

func (UpdateContactConfig) Kind() NodeKind { return NodeKindAction }

func (UpdateContactConfig) ActionType() ActionType { return ActionUpdateContact }

type UpdateDealConfig struct {
	DealID            string         `json:"deal_id"`
	Title             string         `json:"title"`
	Stage             string         `json:"stage"`
	Value             any            `json:"value"`
	ExpectedCloseDate string         `json:"expected_close_date"`
	Metadata          map[string]any `json:"metadata"`
}

func (UpdateDealConfig) Kind() NodeKind { return NodeKindAction }

func (UpdateDealConfig) ActionType() ActionType { return ActionUpdateDeal }

type AddTagConfig struct {
	ContactID string   `json:"contact_id"`
	Tag       string   `json:"tag"        validate:"required_without=Tags"`
	Tags      []string `json:"tags"       validate:"required_without=Tag"`
}

func (AddTagConfig) Kind() NodeKind { return NodeKindAction }

func (AddTagConfig) ActionType() ActionType { return ActionAddTag }

// TagList returns Tag and Tags combined, blanks dropped.
func (c AddTagConfig) TagList() []string {
	tags := make([]string, 0, len(c.Tags)+1)
	if c.Tag != "" {
		tags = append(tags, c.Tag)
	}

	for _, tag := range c.Tags {
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

const (
	NotificationInApp = "in_app"
	NotificationEmail = "email"
)

// SendNotificationConfig To is a user id (UUID) or the email of a tenant user.
type SendNotificationConfig struct {
	To               string `json:"to"                validate:"required"`
	Title            string `json:"title"             validate:"required"`
	Message          string `json:"message"`
	Link             string `json:"link"`
	NotificationType string `json:"notification_type" validate:"omitempty,oneof=in_app email"`
}

func (SendNotificationConfig) Kind() NodeKind { return NodeKindAction }

func (SendNotificationConfig) ActionType() ActionType { return ActionSendNotification }

type SendWebhookConfig struct {
	URL     string            `json:"url"     validate:"required"`
	Method  string            `json:"method"  validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
}

func (SendWebhookConfig) Kind() NodeKind { return NodeKindAction }

func (SendWebhookConfig) ActionType() ActionType { return ActionSendWebhook }

type UpdateConversationMetadataConfig struct {
	ConversationID string         `json:"conversation_id"`
	Metadata       map[string]any `json:"metadata"        validate:"required"`
}

func (UpdateConversationMetadataConfig) Kind() NodeKind { return NodeKindAction }

func (UpdateConversationMetadataConfig) ActionType() ActionType {
	return ActionUpdateConversationMetadata
}

// ParseActionConfig decodes the raw config for the given action type.
func ParseActionConfig(actionType ActionType, raw map[string]any) (ActionConfig, error) {
	switch actionType {
	case ActionCreateDeal:
		return decodeConfig[CreateDealConfig](raw)
	case ActionUpdateContact:
		return decodeConfig[UpdateContactConfig](raw)
	case ActionUpdateDeal:
		return decodeConfig[UpdateDealConfig](raw)
	case ActionAddTag:
		return decodeConfig[AddTagConfig](raw)
	case ActionSendNotification:
		return decodeConfig[SendNotificationConfig](raw)
	case ActionSendWebhook:
		return decodeConfig[SendWebhookConfig](raw)
	case ActionUpdateConversationMetadata:
		return decodeConfig[UpdateConversationMetadataConfig](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}
}
