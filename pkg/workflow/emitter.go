package workflow

import (
	"context"
	"fmt"

	"github.com/dukex/autopilot/pkg/eventbus"
	"github.com/dukex/autopilot/pkg/events"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
)

// BusEmitter publishes chained trigger events on the event bus, where the worker's
// subscription hands them back to a Dispatcher.
type BusEmitter struct {
	bus     eventbus.EventBus
	metrics *metrics.Metrics
}

func NewBusEmitter(bus eventbus.EventBus, m *metrics.Metrics) *BusEmitter {
	return &BusEmitter{bus: bus, metrics: m}
}

func (e *BusEmitter) Emit(ctx context.Context, event models.TriggerEvent) error {
	fired := events.TriggerFired{
		BaseEvent:   events.NewBaseEvent(e.bus.GenerateID(), events.TriggerFiredEvent, event.TenantID, event.WorkflowID),
		TriggerType: event.Type,
		TriggerData: event.Data,
		Depth:       event.Depth,
		ExecutionID: event.ExecutionID,
	}

	if err := e.bus.Publish(ctx, event.TenantID, fired); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event.Type, err)
	}

	e.metrics.ChainedEventEmitted(string(event.Type))

	return nil
}
