package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

// AutomationService owns the authoring lifecycle of automation rules:
// validation, ID assignment, and NextRun seeding for schedule rules.
type AutomationService struct {
	repo repository.AutomationRepository
}

func NewAutomationService(repo repository.AutomationRepository) *AutomationService {
	return &AutomationService{repo: repo}
}

// Create validates and stores a new rule.
func (s *AutomationService) Create(ctx context.Context, rule *hivelab.AutomationRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now()
	if rule.ID == "" {
		rule.ID = hivelab.GenerateID("auto")
	}
	rule.RunCount = 0
	rule.ErrorCount = 0
	rule.LastRun = nil
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if rule.Trigger.Type == hivelab.TriggerSchedule {
		next := engine.NextRunAfter(rule.Trigger.Cron, now)
		rule.NextRun = &next
	} else {
		rule.NextRun = nil
	}

	return s.repo.Create(ctx, rule)
}

// Get returns one rule.
func (s *AutomationService) Get(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRule, error) {
	return s.repo.Get(ctx, deploymentID, id)
}

// List returns a deployment's rules in creation order.
func (s *AutomationService) List(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error) {
	return s.repo.ListByDeployment(ctx, deploymentID)
}

// Update replaces a rule's definition, preserving its run counters.
func (s *AutomationService) Update(ctx context.Context, rule *hivelab.AutomationRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	existing, err := s.repo.Get(ctx, rule.DeploymentID, rule.ID)
	if err != nil {
		return err
	}

	// Counters belong to the runner; authoring cannot reset them.
	rule.RunCount = existing.RunCount
	rule.ErrorCount = existing.ErrorCount
	rule.LastRun = existing.LastRun
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	if rule.Trigger.Type == hivelab.TriggerSchedule {
		next := engine.NextRunAfter(rule.Trigger.Cron, rule.UpdatedAt)
		rule.NextRun = &next
	} else {
		rule.NextRun = nil
	}

	return s.repo.Update(ctx, rule)
}

// Delete removes a rule.
func (s *AutomationService) Delete(ctx context.Context, deploymentID, id string) error {
	return s.repo.Delete(ctx, deploymentID, id)
}

// SetEnabled toggles a rule without touching the rest of its definition.
func (s *AutomationService) SetEnabled(ctx context.Context, deploymentID, id string, enabled bool) error {
	rule, err := s.repo.Get(ctx, deploymentID, id)
	if err != nil {
		return err
	}
	rule.Enabled = enabled
	rule.UpdatedAt = time.Now()
	return s.repo.Update(ctx, rule)
}

// PreviewCondition evaluates a condition node against a caller-supplied
// context without side effects, for the rule-authoring UI.
func (s *AutomationService) PreviewCondition(node hivelab.ConditionNode, evalCtx map[string]any) bool {
	return engine.EvaluateNode(node, evalCtx)
}

func validateRule(rule *hivelab.AutomationRule) error {
	if rule.DeploymentID == "" {
		return fmt.Errorf("automation: deployment_id is required")
	}
	if rule.Name == "" {
		return fmt.Errorf("automation: name is required")
	}

	switch rule.Trigger.Type {
	case hivelab.TriggerEvent:
		if rule.Trigger.ElementID == "" || rule.Trigger.Event == "" {
			return fmt.Errorf("automation: event trigger requires element_id and event")
		}
	case hivelab.TriggerSchedule:
		if rule.Trigger.Cron == "" {
			return fmt.Errorf("automation: schedule trigger requires cron")
		}
	case hivelab.TriggerThreshold:
		if rule.Trigger.Path == "" || rule.Trigger.Operator == "" {
			return fmt.Errorf("automation: threshold trigger requires path and operator")
		}
	default:
		return fmt.Errorf("automation: unknown trigger type %q", rule.Trigger.Type)
	}

	if len(rule.Actions) == 0 {
		return fmt.Errorf("automation: at least one action is required")
	}
	for i, action := range rule.Actions {
		switch action.Type {
		case hivelab.ActionNotify:
			if action.Channel == "" {
				return fmt.Errorf("automation: action %d: notify requires channel", i)
			}
		case hivelab.ActionMutate:
			if action.ElementID == "" {
				return fmt.Errorf("automation: action %d: mutate requires element_id", i)
			}
		case hivelab.ActionTriggerTool:
			if action.TargetDeploymentID == "" {
				return fmt.Errorf("automation: action %d: triggerTool requires target_deployment_id", i)
			}
		default:
			return fmt.Errorf("automation: action %d: unknown type %q", i, action.Type)
		}
	}
	return nil
}
