package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

// StateService owns a deployment's shared tool state. Every patch snapshots
// the previous state and feeds the transition to the runner's threshold
// processing.
type StateService struct {
	repo   repository.StateRepository
	runner *engine.Runner
}

func NewStateService(repo repository.StateRepository) *StateService {
	return &StateService{repo: repo}
}

// SetRunner wires threshold processing once the runner is constructed.
func (s *StateService) SetRunner(runner *engine.Runner) {
	s.runner = runner
}

// Get returns the deployment's current state.
func (s *StateService) Get(ctx context.Context, deploymentID string) (map[string]any, error) {
	return s.repo.Get(ctx, deploymentID)
}

// Patch deep-merges the patch into the deployment's state, then runs
// threshold triggers against the previous/current transition. Threshold
// results are returned to the caller alongside the new state.
func (s *StateService) Patch(ctx context.Context, deploymentID string, patch map[string]any, rc hivelab.RunContext) (map[string]any, []hivelab.ExecutionResult, error) {
	previous, err := s.repo.Get(ctx, deploymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}

	current := mergePatch(previous, patch)
	if err := s.repo.Set(ctx, deploymentID, current); err != nil {
		return nil, nil, fmt.Errorf("store state: %w", err)
	}

	if s.runner == nil {
		return current, nil, nil
	}
	results, err := s.runner.ProcessThresholdTriggers(ctx, deploymentID, previous, current, rc)
	if err != nil {
		slog.Warn("state: threshold processing failed", "deployment", deploymentID, "err", err)
		return current, nil, nil
	}
	return current, results, nil
}

// MutateElement implements the engine's mutate executor: the mutation is
// merged into the element's slice of the shared state. Threshold triggers
// fired by the mutation run as part of the patch.
func (s *StateService) MutateElement(ctx context.Context, req engine.MutateRequest) error {
	_, _, err := s.Patch(ctx, req.DeploymentID, map[string]any{req.ElementID: req.Mutation}, hivelab.RunContext{})
	return err
}

// mergePatch deep-merges patch into base without mutating either. A non-map
// patch value replaces the base value wholesale; nil deletes the key.
func mergePatch(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		patchMap, pok := v.(map[string]any)
		baseMap, bok := out[k].(map[string]any)
		if pok && bok {
			out[k] = mergePatch(baseMap, patchMap)
			continue
		}
		out[k] = v
	}
	return out
}

func errNotWired(component string) error {
	return fmt.Errorf("%s not wired", component)
}
