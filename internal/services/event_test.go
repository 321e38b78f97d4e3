package services

import (
	"context"
	"testing"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

func TestEventService_CrossToolTrigger(t *testing.T) {
	ctx := context.Background()

	automations := repository.NewMemoryAutomationRepository()
	runs := repository.NewMemoryRunRepository()
	state := repository.NewMemoryStateRepository()
	stateSvc := NewStateService(state)
	dispatcher := NewToolTriggerDispatcher()

	runner := engine.NewRunner(
		repository.NewEngineStore(automations, runs, state),
		engine.Executors{
			Email:      noopEmail{},
			Mutator:    stateSvc,
			Tools:      dispatcher,
			Recipients: staticRecipients{"u-1"},
		},
	)
	stateSvc.SetRunner(runner)
	events := NewEventService(runner)
	dispatcher.SetEventService(events)

	// dep-1: a click forwards to dep-2.
	source := &hivelab.AutomationRule{
		ID: "auto-src", DeploymentID: "dep-1", Name: "forward", Enabled: true,
		Trigger: hivelab.Trigger{Type: hivelab.TriggerEvent, ElementID: "btn-1", Event: "click"},
		Actions: []hivelab.Action{{Type: hivelab.ActionTriggerTool, TargetDeploymentID: "dep-2"}},
	}
	// dep-2: reacts to the forwarded event by mutating its state.
	target := &hivelab.AutomationRule{
		ID: "auto-dst", DeploymentID: "dep-2", Name: "receive", Enabled: true,
		Trigger: hivelab.Trigger{Type: hivelab.TriggerEvent, ElementID: "tool", Event: EventToolTriggered},
		Actions: []hivelab.Action{{Type: hivelab.ActionMutate, ElementID: "inbox", Mutation: map[string]any{"received": true}}},
	}
	for _, r := range []*hivelab.AutomationRule{source, target} {
		if err := automations.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s) returned unexpected error: %v", r.ID, err)
		}
	}

	results, err := events.Emit(ctx, "dep-1", "btn-1", "click", hivelab.RunContext{TriggeringUserID: "u-1"})
	if err != nil {
		t.Fatalf("Emit returned unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Emit processed %d rules, want 1", len(results))
	}
	if results[0].Status != hivelab.RunSuccess {
		t.Fatalf("source rule status = %q (error: %s)", results[0].Status, results[0].Error)
	}

	// The target deployment's rule ran and left its mark.
	depState, err := stateSvc.Get(ctx, "dep-2")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	inbox, ok := depState["inbox"].(map[string]any)
	if !ok || inbox["received"] != true {
		t.Errorf("target state = %v, want inbox.received = true", depState)
	}

	// Both deployments logged exactly one run.
	_, total, _ := runs.ListByDeployment(ctx, "dep-1", 10, 0)
	if total != 1 {
		t.Errorf("dep-1 run records = %d, want 1", total)
	}
	_, total, _ = runs.ListByDeployment(ctx, "dep-2", 10, 0)
	if total != 1 {
		t.Errorf("dep-2 run records = %d, want 1", total)
	}
}

func TestToolTriggerDispatcher_Unwired(t *testing.T) {
	dispatcher := NewToolTriggerDispatcher()
	err := dispatcher.TriggerTool(context.Background(), engine.ToolTriggerRequest{TargetDeploymentID: "dep-2"})
	if err == nil {
		t.Fatal("unwired dispatcher did not error")
	}
}
