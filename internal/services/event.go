package services

import (
	"context"
	"log/slog"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
)

// EventToolTriggered is the element event fired on a target deployment by a
// triggerTool action when the action does not name its own event.
const EventToolTriggered = "tool:triggered"

// EventService feeds element interaction events into the runner.
type EventService struct {
	runner *engine.Runner
}

func NewEventService(runner *engine.Runner) *EventService {
	return &EventService{runner: runner}
}

// Emit processes one element event against the deployment's automations.
func (s *EventService) Emit(ctx context.Context, deploymentID, elementID, event string, rc hivelab.RunContext) ([]hivelab.ExecutionResult, error) {
	results, err := s.runner.ProcessEventTrigger(ctx, deploymentID, elementID, event, rc)
	if err != nil {
		return nil, err
	}
	slog.Info("events: processed element event",
		"deployment", deploymentID, "element", elementID, "event", event, "rules", len(results))
	return results, nil
}

// ToolTriggerDispatcher re-enters the runner when a triggerTool action
// fires: the target deployment sees an element event from the "tool"
// pseudo-element. The event service is injected after construction because
// the runner's executors are built before the runner exists.
type ToolTriggerDispatcher struct {
	events *EventService
}

func NewToolTriggerDispatcher() *ToolTriggerDispatcher {
	return &ToolTriggerDispatcher{}
}

// SetEventService wires the dispatcher once the runner is constructed.
func (d *ToolTriggerDispatcher) SetEventService(events *EventService) {
	d.events = events
}

func (d *ToolTriggerDispatcher) TriggerTool(ctx context.Context, req engine.ToolTriggerRequest) error {
	if d.events == nil {
		return errNotWired("tool trigger dispatcher")
	}

	event := req.Event
	if event == "" {
		event = EventToolTriggered
	}
	rc := hivelab.RunContext{Data: req.Data}

	results, err := d.events.Emit(ctx, req.TargetDeploymentID, "tool", event, rc)
	if err != nil {
		return err
	}
	slog.Info("events: cross-tool trigger dispatched",
		"source", req.SourceDeploymentID, "target", req.TargetDeploymentID,
		"event", event, "rules", len(results))
	return nil
}
