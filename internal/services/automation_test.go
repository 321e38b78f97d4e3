package services

import (
	"context"
	"strings"
	"testing"

	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

func validRule() *hivelab.AutomationRule {
	return &hivelab.AutomationRule{
		DeploymentID: "dep-1",
		Name:         "welcome",
		Enabled:      true,
		Trigger:      hivelab.Trigger{Type: hivelab.TriggerEvent, ElementID: "btn-1", Event: "click"},
		Actions:      []hivelab.Action{{Type: hivelab.ActionMutate, ElementID: "counter", Mutation: map[string]any{"inc": 1}}},
	}
}

func TestAutomationService_Create(t *testing.T) {
	svc := NewAutomationService(repository.NewMemoryAutomationRepository())
	ctx := context.Background()

	rule := validRule()
	if err := svc.Create(ctx, rule); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}
	if rule.ID == "" || !strings.HasPrefix(rule.ID, "auto-") {
		t.Errorf("ID = %q, want auto- prefix", rule.ID)
	}
	if rule.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if rule.NextRun != nil {
		t.Error("event rule got a NextRun")
	}

	got, err := svc.Get(ctx, "dep-1", rule.ID)
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if got.Name != "welcome" {
		t.Errorf("Name = %q, want welcome", got.Name)
	}
}

func TestAutomationService_Create_SeedsNextRunForSchedules(t *testing.T) {
	svc := NewAutomationService(repository.NewMemoryAutomationRepository())
	ctx := context.Background()

	rule := validRule()
	rule.Trigger = hivelab.Trigger{Type: hivelab.TriggerSchedule, Cron: "0 9 * * *"}
	if err := svc.Create(ctx, rule); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}
	if rule.NextRun == nil {
		t.Fatal("schedule rule missing NextRun")
	}
	if got := rule.NextRun.Minute(); got != 0 {
		t.Errorf("NextRun minute = %d, want 0", got)
	}
	if got := rule.NextRun.Hour(); got != 9 {
		t.Errorf("NextRun hour = %d, want 9", got)
	}
}

func TestAutomationService_Create_Validation(t *testing.T) {
	svc := NewAutomationService(repository.NewMemoryAutomationRepository())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*hivelab.AutomationRule)
	}{
		{"missing deployment", func(r *hivelab.AutomationRule) { r.DeploymentID = "" }},
		{"missing name", func(r *hivelab.AutomationRule) { r.Name = "" }},
		{"event without element", func(r *hivelab.AutomationRule) { r.Trigger.ElementID = "" }},
		{"unknown trigger", func(r *hivelab.AutomationRule) { r.Trigger.Type = "random" }},
		{"schedule without cron", func(r *hivelab.AutomationRule) {
			r.Trigger = hivelab.Trigger{Type: hivelab.TriggerSchedule}
		}},
		{"threshold without path", func(r *hivelab.AutomationRule) {
			r.Trigger = hivelab.Trigger{Type: hivelab.TriggerThreshold, Operator: ">"}
		}},
		{"no actions", func(r *hivelab.AutomationRule) { r.Actions = nil }},
		{"notify without channel", func(r *hivelab.AutomationRule) {
			r.Actions = []hivelab.Action{{Type: hivelab.ActionNotify}}
		}},
		{"mutate without element", func(r *hivelab.AutomationRule) {
			r.Actions = []hivelab.Action{{Type: hivelab.ActionMutate}}
		}},
		{"triggerTool without target", func(r *hivelab.AutomationRule) {
			r.Actions = []hivelab.Action{{Type: hivelab.ActionTriggerTool}}
		}},
		{"unknown action", func(r *hivelab.AutomationRule) {
			r.Actions = []hivelab.Action{{Type: "explode"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(rule)
			if err := svc.Create(ctx, rule); err == nil {
				t.Error("Create accepted an invalid rule")
			}
		})
	}
}

func TestAutomationService_Update_PreservesCounters(t *testing.T) {
	repo := repository.NewMemoryAutomationRepository()
	svc := NewAutomationService(repo)
	ctx := context.Background()

	rule := validRule()
	if err := svc.Create(ctx, rule); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}

	// Simulate runner bookkeeping, then an authoring update that tries to
	// reset the counters.
	stored, _ := repo.Get(ctx, "dep-1", rule.ID)
	stored.RunCount = 7
	stored.ErrorCount = 2
	if err := repo.Update(ctx, stored); err != nil {
		t.Fatalf("Update returned unexpected error: %v", err)
	}

	edited := validRule()
	edited.ID = rule.ID
	edited.Name = "renamed"
	edited.RunCount = 0
	edited.ErrorCount = 0
	if err := svc.Update(ctx, edited); err != nil {
		t.Fatalf("Update returned unexpected error: %v", err)
	}

	got, err := svc.Get(ctx, "dep-1", rule.ID)
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", got.Name)
	}
	if got.RunCount != 7 || got.ErrorCount != 2 {
		t.Errorf("counters = %d/%d, want 7/2", got.RunCount, got.ErrorCount)
	}
}

func TestAutomationService_SetEnabled(t *testing.T) {
	svc := NewAutomationService(repository.NewMemoryAutomationRepository())
	ctx := context.Background()

	rule := validRule()
	if err := svc.Create(ctx, rule); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}
	if err := svc.SetEnabled(ctx, "dep-1", rule.ID, false); err != nil {
		t.Fatalf("SetEnabled returned unexpected error: %v", err)
	}

	got, _ := svc.Get(ctx, "dep-1", rule.ID)
	if got.Enabled {
		t.Error("rule still enabled after SetEnabled(false)")
	}
}

func TestAutomationService_PreviewCondition(t *testing.T) {
	svc := NewAutomationService(repository.NewMemoryAutomationRepository())

	node := hivelab.ConditionNode{
		Condition: &hivelab.Condition{Field: "state.votes", Operator: hivelab.OpGreaterThan, Value: 5},
	}
	evalCtx := map[string]any{"state": map[string]any{"votes": 9.0}}

	if !svc.PreviewCondition(node, evalCtx) {
		t.Error("PreviewCondition = false, want true")
	}
	evalCtx["state"].(map[string]any)["votes"] = 2.0
	if svc.PreviewCondition(node, evalCtx) {
		t.Error("PreviewCondition = true, want false")
	}
}
