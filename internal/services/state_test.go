package services

import (
	"context"
	"testing"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

type noopEmail struct{}

func (noopEmail) SendEmail(_ context.Context, req engine.EmailRequest) (engine.SendResult, error) {
	return engine.SendResult{Sent: len(req.To)}, nil
}

type noopTools struct{}

func (noopTools) TriggerTool(context.Context, engine.ToolTriggerRequest) error { return nil }

type staticRecipients []string

func (r staticRecipients) ResolveRecipients(context.Context, engine.RecipientQuery) ([]string, error) {
	return r, nil
}

// newTestRunner builds a runner over in-memory stores with the state service
// doubling as the mutate executor, mirroring production wiring.
func newTestRunner(t *testing.T) (*engine.Runner, *StateService, repository.AutomationRepository) {
	t.Helper()

	automations := repository.NewMemoryAutomationRepository()
	runs := repository.NewMemoryRunRepository()
	state := repository.NewMemoryStateRepository()
	stateSvc := NewStateService(state)

	runner := engine.NewRunner(
		repository.NewEngineStore(automations, runs, state),
		engine.Executors{
			Email:      noopEmail{},
			Mutator:    stateSvc,
			Tools:      noopTools{},
			Recipients: staticRecipients{"u-1"},
		},
	)
	stateSvc.SetRunner(runner)
	return runner, stateSvc, automations
}

func TestMergePatch(t *testing.T) {
	base := map[string]any{
		"poll":  map[string]any{"votes": 3.0, "open": true},
		"title": "hello",
	}
	patch := map[string]any{
		"poll":  map[string]any{"votes": 4.0},
		"extra": "new",
		"title": nil,
	}

	out := mergePatch(base, patch)

	poll := out["poll"].(map[string]any)
	if poll["votes"] != 4.0 {
		t.Errorf("votes = %v, want 4", poll["votes"])
	}
	if poll["open"] != true {
		t.Error("deep merge dropped sibling key 'open'")
	}
	if out["extra"] != "new" {
		t.Errorf("extra = %v, want new", out["extra"])
	}
	if _, ok := out["title"]; ok {
		t.Error("nil patch value did not delete key")
	}

	// Inputs are untouched.
	if base["poll"].(map[string]any)["votes"] != 3.0 {
		t.Error("mergePatch mutated base")
	}
}

func TestStateService_PatchFiresThresholds(t *testing.T) {
	_, stateSvc, automations := newTestRunner(t)
	ctx := context.Background()

	rule := &hivelab.AutomationRule{
		ID:           "auto-th",
		DeploymentID: "dep-1",
		Name:         "votes threshold",
		Enabled:      true,
		Trigger:      hivelab.Trigger{Type: hivelab.TriggerThreshold, Path: "poll.votes", Operator: ">=", Value: 10},
		Actions: []hivelab.Action{
			{Type: hivelab.ActionNotify, Channel: hivelab.ChannelEmail, To: hivelab.RecipientsAll, Subject: "threshold"},
		},
	}
	if err := automations.Create(ctx, rule); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}

	// Below threshold: no firing.
	_, results, err := stateSvc.Patch(ctx, "dep-1", map[string]any{"poll": map[string]any{"votes": 5.0}}, hivelab.RunContext{})
	if err != nil {
		t.Fatalf("Patch returned unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("patch below threshold fired %d rules, want 0", len(results))
	}

	// Crossing fires once.
	current, results, err := stateSvc.Patch(ctx, "dep-1", map[string]any{"poll": map[string]any{"votes": 12.0}}, hivelab.RunContext{TriggeringUserID: "u-9"})
	if err != nil {
		t.Fatalf("Patch returned unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("crossing fired %d rules, want 1", len(results))
	}
	if results[0].Status != hivelab.RunSuccess {
		t.Errorf("result status = %q, want success (error: %s)", results[0].Status, results[0].Error)
	}
	if current["poll"].(map[string]any)["votes"] != 12.0 {
		t.Errorf("state not updated: %v", current)
	}

	// Staying above does not re-fire.
	_, results, err = stateSvc.Patch(ctx, "dep-1", map[string]any{"poll": map[string]any{"votes": 13.0}}, hivelab.RunContext{})
	if err != nil {
		t.Fatalf("Patch returned unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("already-satisfied threshold re-fired %d times", len(results))
	}
}

func TestStateService_MutateElement(t *testing.T) {
	_, stateSvc, _ := newTestRunner(t)
	ctx := context.Background()

	err := stateSvc.MutateElement(ctx, engine.MutateRequest{
		DeploymentID: "dep-1",
		ElementID:    "counter",
		Mutation:     map[string]any{"value": 7.0},
	})
	if err != nil {
		t.Fatalf("MutateElement returned unexpected error: %v", err)
	}

	state, err := stateSvc.Get(ctx, "dep-1")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	counter, ok := state["counter"].(map[string]any)
	if !ok || counter["value"] != 7.0 {
		t.Errorf("state after mutate = %v, want counter.value = 7", state)
	}
}
