package models

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"
)

// Trigger config keys.
const (
	FilterIntentType          = "intent_type"
	FilterConfidenceThreshold = "confidence_threshold"
	FilterAgentID             = "agent_id"
	FilterChannel             = "channel"
	FilterMinDuration         = "min_duration"
	FilterSource              = "source"
	FilterFieldsChanged       = "fields_changed"
	FilterStage               = "stage"
	FilterMinValue            = "min_value"
	FilterContactID           = "contact_id"
	FilterFromStage           = "from_stage"
	FilterToStage             = "to_stage"
	FilterDealID              = "deal_id"
	FilterKeywords            = "keywords"
)

var allFilterFields = []string{
	FilterIntentType, FilterConfidenceThreshold, FilterAgentID, FilterChannel, FilterMinDuration,
	FilterSource, FilterFieldsChanged, FilterStage, FilterMinValue, FilterContactID,
	FilterFromStage, FilterToStage, FilterDealID, FilterKeywords,
}

// TriggerFilter is the typed view of a workflow's trigger_config. Every field is optional;
// which ones apply depends on the workflow's trigger type.
type TriggerFilter struct {
	IntentType          string
	ConfidenceThreshold *float64
	AgentID             string
	Channel             string
	MinDuration         *float64
	Source              string
	FieldsChanged       []string
	Stage               string
	MinValue            *float64
	ContactID           string
	FromStage           string
	ToStage             string
	DealID              string
	Keywords            []string
}

// DefaultConfidenceThreshold applies to purchase_intent workflows without an explicit threshold.
const DefaultConfidenceThreshold = 0.8

// ParseTriggerFilter decodes the named keys of a trigger_config map, or every key when none
// are named. Values are coerced: "0.8" is a valid threshold and a single string is a
// one-element list. Keys that are not named are ignored whatever they hold.
func ParseTriggerFilter(config map[string]any, fields ...string) (TriggerFilter, error) {
	var filter TriggerFilter

	if len(fields) == 0 {
		fields = allFilterFields
	}

	var errs []error

	for _, field := range fields {
		value, ok := config[field]
		if !ok || value == nil {
			continue
		}

		if err := filter.set(field, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid trigger config %s: %w", field, err))
		}
	}

	return filter, errors.Join(errs...)
}

func (f *TriggerFilter) set(field string, value any) error {
	var err error

	switch field {
	case FilterIntentType:
		f.IntentType, err = cast.ToStringE(value)
	case FilterAgentID:
		f.AgentID, err = cast.ToStringE(value)
	case FilterChannel:
		f.Channel, err = cast.ToStringE(value)
	case FilterSource:
		f.Source, err = cast.ToStringE(value)
	case FilterStage:
		f.Stage, err = cast.ToStringE(value)
	case FilterContactID:
		f.ContactID, err = cast.ToStringE(value)
	case FilterFromStage:
		f.FromStage, err = cast.ToStringE(value)
	case FilterToStage:
		f.ToStage, err = cast.ToStringE(value)
	case FilterDealID:
		f.DealID, err = cast.ToStringE(value)
	case FilterConfidenceThreshold:
		f.ConfidenceThreshold, err = toFloatPtr(value)
	case FilterMinDuration:
		f.MinDuration, err = toFloatPtr(value)
	case FilterMinValue:
		f.MinValue, err = toFloatPtr(value)
	case FilterFieldsChanged:
		f.FieldsChanged, err = toStringList(value)
	case FilterKeywords:
		f.Keywords, err = toStringList(value)
	default:
		err = fmt.Errorf("unknown filter key %q", field)
	}

	return err
}

func toFloatPtr(value any) (*float64, error) {
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func toStringList(value any) ([]string, error) {
	if s, ok := value.(string); ok {
		return []string{s}, nil
	}

	return cast.ToStringSliceE(value)
}

func (f TriggerFilter) Threshold() float64 {
	if f.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}

	return *f.ConfidenceThreshold
}
