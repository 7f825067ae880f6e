package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/spf13/cast"
)

// MatchResult carries the decision and, on rejection, the reason recorded on the cancelled run.
type MatchResult struct {
	Matched bool
	Reason  string
}

func matched() MatchResult {
	return MatchResult{Matched: true}
}

func rejected(format string, args ...any) MatchResult {
	return MatchResult{Reason: fmt.Sprintf(format, args...)}
}

// TriggerMatcher decides whether an event satisfies a workflow's trigger_config.
type TriggerMatcher struct {
	logger *slog.Logger
}

func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Matches is the boolean form of Match.
func (tm *TriggerMatcher) Matches(workflow *models.Workflow, triggerNode *models.WorkflowNode, triggerData map[string]any) bool {
	return tm.Match(workflow, triggerNode, triggerData).Matched
}

// filterFields lists the trigger_config keys each trigger type reads.
var filterFields = map[models.TriggerType][]string{
	models.TriggerPurchaseIntent:      {models.FilterIntentType, models.FilterConfidenceThreshold},
	models.TriggerConversationStarted: {models.FilterAgentID, models.FilterChannel},
	models.TriggerConversationEnded:   {models.FilterAgentID, models.FilterChannel, models.FilterMinDuration},
	models.TriggerContactCreated:      {models.FilterSource},
	models.TriggerContactUpdated:      {models.FilterSource, models.FilterFieldsChanged},
	models.TriggerDealCreated:         {models.FilterStage, models.FilterMinValue, models.FilterContactID},
	models.TriggerDealStageChanged:    {models.FilterFromStage, models.FilterToStage, models.FilterDealID},
	models.TriggerMessageReceived:     {models.FilterAgentID, models.FilterChannel, models.FilterKeywords},
}

// Match checks the workflow's trigger filter against the event payload. Webhook and unknown
// trigger types match without reading trigger_config. Other types only reject on config
// keys they read and cannot coerce.
func (tm *TriggerMatcher) Match(workflow *models.Workflow, triggerNode *models.WorkflowNode, triggerData map[string]any) MatchResult {
	if workflow.TriggerType == models.TriggerWebhook {
		return matched()
	}

	fields, known := filterFields[workflow.TriggerType]
	if !known {
		tm.logger.Warn("Unknown trigger type, matching by default",
			"workflow_id", workflow.ID,
			"trigger_type", workflow.TriggerType)

		return matched()
	}

	filter, err := models.ParseTriggerFilter(workflow.TriggerConfig, fields...)
	if err != nil {
		tm.logger.Error("Invalid trigger config, rejecting event",
			"workflow_id", workflow.ID,
			"trigger_node_id", triggerNode.ID,
			"error", err)

		return rejected("%v", err)
	}

	data := payload(triggerData)

	switch workflow.TriggerType {
	case models.TriggerPurchaseIntent:
		return tm.matchPurchaseIntent(filter, data)
	case models.TriggerConversationStarted:
		return tm.matchConversation(filter, data, false)
	case models.TriggerConversationEnded:
		return tm.matchConversation(filter, data, true)
	case models.TriggerContactCreated:
		return tm.matchContact(filter, data, false)
	case models.TriggerContactUpdated:
		return tm.matchContact(filter, data, true)
	case models.TriggerDealCreated:
		return tm.matchDealCreated(filter, data)
	case models.TriggerDealStageChanged:
		return tm.matchDealStageChanged(filter, data)
	default:
		return tm.matchMessageReceived(filter, data)
	}
}

func (tm *TriggerMatcher) matchPurchaseIntent(filter models.TriggerFilter, data payload) MatchResult {
	if filter.IntentType != "" {
		intent := data.str("intent_type", "intent")
		if intent != filter.IntentType {
			return rejected("intent %q does not match %q", intent, filter.IntentType)
		}
	}

	confidence, ok := data.number("confidence")
	threshold := filter.Threshold()

	if !ok || confidence < threshold {
		return rejected("confidence %v below threshold %v", data.raw("confidence"), threshold)
	}

	return matched()
}

func (tm *TriggerMatcher) matchConversation(filter models.TriggerFilter, data payload, ended bool) MatchResult {
	if result := matchAgentAndChannel(filter, data); !result.Matched {
		return result
	}

	if ended && filter.MinDuration != nil {
		duration, ok := data.number("duration", "duration_seconds")
		if !ok || duration < *filter.MinDuration {
			return rejected("conversation duration %v below minimum %v", data.raw("duration", "duration_seconds"), *filter.MinDuration)
		}
	}

	return matched()
}

func (tm *TriggerMatcher) matchContact(filter models.TriggerFilter, data payload, updated bool) MatchResult {
	if filter.Source != "" && data.str("source") != filter.Source {
		return rejected("source %q does not match %q", data.str("source"), filter.Source)
	}

	if updated && len(filter.FieldsChanged) > 0 {
		changed := data.strings("changed_fields", "fields_changed")

		if !intersects(filter.FieldsChanged, changed) {
			return rejected("changed fields %v do not include any of %v", changed, filter.FieldsChanged)
		}
	}

	return matched()
}

func (tm *TriggerMatcher) matchDealCreated(filter models.TriggerFilter, data payload) MatchResult {
	if filter.Stage != "" && data.str("stage") != filter.Stage {
		return rejected("stage %q does not match %q", data.str("stage"), filter.Stage)
	}

	if filter.MinValue != nil {
		value, ok := data.number("value")
		if !ok || value < *filter.MinValue {
			return rejected("deal value %v below minimum %v", data.raw("value"), *filter.MinValue)
		}
	}

	if filter.ContactID != "" && data.str("contact_id", "contactId") != filter.ContactID {
		return rejected("contact %q does not match %q", data.str("contact_id", "contactId"), filter.ContactID)
	}

	return matched()
}

func (tm *TriggerMatcher) matchDealStageChanged(filter models.TriggerFilter, data payload) MatchResult {
	if filter.FromStage != "" && data.str("from_stage") != filter.FromStage {
		return rejected("from stage %q does not match %q", data.str("from_stage"), filter.FromStage)
	}

	if filter.ToStage != "" && data.str("to_stage") != filter.ToStage {
		return rejected("to stage %q does not match %q", data.str("to_stage"), filter.ToStage)
	}

	if filter.DealID != "" && data.str("deal_id", "dealId") != filter.DealID {
		return rejected("deal %q does not match %q", data.str("deal_id", "dealId"), filter.DealID)
	}

	return matched()
}

func (tm *TriggerMatcher) matchMessageReceived(filter models.TriggerFilter, data payload) MatchResult {
	if result := matchAgentAndChannel(filter, data); !result.Matched {
		return result
	}

	if len(filter.Keywords) > 0 {
		text := strings.ToLower(data.str("message", "content", "text"))

		for _, keyword := range filter.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" && strings.Contains(text, keyword) {
				return matched()
			}
		}

		return rejected("message contains none of the keywords %v", filter.Keywords)
	}

	return matched()
}

func matchAgentAndChannel(filter models.TriggerFilter, data payload) MatchResult {
	if filter.AgentID != "" && data.str("agent_id", "agentId") != filter.AgentID {
		return rejected("agent %q does not match %q", data.str("agent_id", "agentId"), filter.AgentID)
	}

	if filter.Channel != "" && data.str("channel") != filter.Channel {
		return rejected("channel %q does not match %q", data.str("channel"), filter.Channel)
	}

	return matched()
}

func intersects(wanted, actual []string) bool {
	set := make(map[string]struct{}, len(actual))
	for _, field := range actual {
		set[field] = struct{}{}
	}

	for _, field := range wanted {
		if _, ok := set[field]; ok {
			return true
		}
	}

	return false
}

// payload reads trigger data keys, trying aliases in order.
type payload map[string]any

func (p payload) raw(keys ...string) any {
	for _, key := range keys {
		if value, ok := p[key]; ok && value != nil {
			return value
		}
	}

	return nil
}

func (p payload) str(keys ...string) string {
	return cast.ToString(p.raw(keys...))
}

func (p payload) number(keys ...string) (float64, bool) {
	return toNumber(p.raw(keys...))
}

func (p payload) strings(keys ...string) []string {
	value := p.raw(keys...)
	if value == nil {
		return nil
	}

	list, err := cast.ToStringSliceE(value)
	if err != nil {
		return nil
	}

	return list
}
