package repository

import (
	"context"
	"time"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
)

// EngineStore adapts the per-entity repositories to the runner's Repository
// port.
type EngineStore struct {
	automations AutomationRepository
	runs        RunRepository
	state       StateRepository
	now         func() time.Time
}

func NewEngineStore(automations AutomationRepository, runs RunRepository, state StateRepository) *EngineStore {
	return &EngineStore{
		automations: automations,
		runs:        runs,
		state:       state,
		now:         time.Now,
	}
}

var _ engine.Repository = (*EngineStore)(nil)

func (s *EngineStore) Automations(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error) {
	return s.automations.ListByDeployment(ctx, deploymentID)
}

func (s *EngineStore) AutomationsByTrigger(ctx context.Context, deploymentID string, trigger hivelab.TriggerType) ([]*hivelab.AutomationRule, error) {
	return s.automations.ListByTrigger(ctx, deploymentID, trigger)
}

func (s *EngineStore) AutomationsByElementEvent(ctx context.Context, deploymentID, elementID, event string) ([]*hivelab.AutomationRule, error) {
	return s.automations.ListByElementEvent(ctx, deploymentID, elementID, event)
}

func (s *EngineStore) ToolState(ctx context.Context, deploymentID string) (map[string]any, error) {
	return s.state.Get(ctx, deploymentID)
}

func (s *EngineStore) UpdateAutomationStats(ctx context.Context, automationID, deploymentID string, stats engine.StatsUpdate) error {
	return s.automations.UpdateStats(ctx, deploymentID, automationID, stats)
}

func (s *EngineStore) LogRun(ctx context.Context, run *hivelab.AutomationRun) error {
	return s.runs.Create(ctx, run)
}

func (s *EngineStore) RunsToday(ctx context.Context, automationID, deploymentID string) (int, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.runs.CountSince(ctx, deploymentID, automationID, midnight)
}

func (s *EngineStore) PruneOldRuns(ctx context.Context, deploymentID string, keep int) error {
	return s.runs.Prune(ctx, deploymentID, keep)
}
