package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	memstore "github.com/campushive/hivelab/internal/repository/memory"
)

// MemoryAutomationRepository is a thread-safe in-memory AutomationRepository.
// All reads return clones so callers can mutate results freely.
type MemoryAutomationRepository struct {
	store *memstore.Store[*hivelab.AutomationRule]
}

// NewMemoryAutomationRepository creates an empty in-memory repository.
func NewMemoryAutomationRepository() *MemoryAutomationRepository {
	return &MemoryAutomationRepository{
		store: memstore.New(func(r *hivelab.AutomationRule) string { return r.ID }),
	}
}

func (r *MemoryAutomationRepository) Create(ctx context.Context, rule *hivelab.AutomationRule) error {
	return r.store.Set(ctx, rule.Clone())
}

func (r *MemoryAutomationRepository) Get(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRule, error) {
	rule, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) || (err == nil && rule.DeploymentID != deploymentID) {
		return nil, fmt.Errorf("%w: automation %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rule.Clone(), nil
}

func (r *MemoryAutomationRepository) Update(ctx context.Context, rule *hivelab.AutomationRule) error {
	if _, err := r.Get(ctx, rule.DeploymentID, rule.ID); err != nil {
		return err
	}
	return r.store.Set(ctx, rule.Clone())
}

func (r *MemoryAutomationRepository) Delete(ctx context.Context, deploymentID, id string) error {
	if _, err := r.Get(ctx, deploymentID, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, id)
}

func (r *MemoryAutomationRepository) ListByDeployment(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error) {
	return r.list(ctx, func(rule *hivelab.AutomationRule) bool {
		return rule.DeploymentID == deploymentID
	})
}

func (r *MemoryAutomationRepository) ListByTrigger(ctx context.Context, deploymentID string, trigger hivelab.TriggerType) ([]*hivelab.AutomationRule, error) {
	return r.list(ctx, func(rule *hivelab.AutomationRule) bool {
		return rule.DeploymentID == deploymentID && rule.Trigger.Type == trigger
	})
}

func (r *MemoryAutomationRepository) ListByElementEvent(ctx context.Context, deploymentID, elementID, event string) ([]*hivelab.AutomationRule, error) {
	return r.list(ctx, func(rule *hivelab.AutomationRule) bool {
		return rule.DeploymentID == deploymentID &&
			rule.Trigger.Type == hivelab.TriggerEvent &&
			rule.Trigger.ElementID == elementID &&
			rule.Trigger.Event == event
	})
}

func (r *MemoryAutomationRepository) DeploymentsWithTrigger(ctx context.Context, trigger hivelab.TriggerType) ([]string, error) {
	rules, err := r.store.Filter(ctx, func(rule *hivelab.AutomationRule) bool {
		return rule.Enabled && rule.Trigger.Type == trigger
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, rule := range rules {
		if !seen[rule.DeploymentID] {
			seen[rule.DeploymentID] = true
			out = append(out, rule.DeploymentID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryAutomationRepository) UpdateStats(ctx context.Context, deploymentID, id string, stats engine.StatsUpdate) error {
	rule, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) || (err == nil && rule.DeploymentID != deploymentID) {
		return fmt.Errorf("%w: automation %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	updated := rule.Clone()
	last := stats.LastRun
	updated.LastRun = &last
	updated.RunCount = stats.RunCount
	updated.ErrorCount = stats.ErrorCount
	if stats.NextRun != nil {
		next := *stats.NextRun
		updated.NextRun = &next
	}
	updated.UpdatedAt = stats.LastRun
	return r.store.Set(ctx, updated)
}

// list clones stored rules matching pred, ordered by creation time for
// deterministic sequential processing.
func (r *MemoryAutomationRepository) list(ctx context.Context, pred func(*hivelab.AutomationRule) bool) ([]*hivelab.AutomationRule, error) {
	rules, err := r.store.Filter(ctx, pred)
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	out := make([]*hivelab.AutomationRule, len(rules))
	for i, rule := range rules {
		out[i] = rule.Clone()
	}
	return out, nil
}
