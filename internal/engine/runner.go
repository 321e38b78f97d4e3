package engine

// runner.go — orchestration: rule selection per trigger family, rate-limit
// gating, condition evaluation, ordered action execution, and bookkeeping.
//
// A failure in one rule never prevents the rest of the batch from being
// processed; every attempt produces exactly one run record and one stats
// update, on every path.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campushive/hivelab/internal/hivelab"
)

// Runner executes automation rules for tool deployments. It is stateless
// between invocations; all durable state lives behind the injected
// Repository. Construct one per process scope with NewRunner — there is no
// package-level instance.
type Runner struct {
	repo Repository
	exec Executors
	now  func() time.Time
}

// NewRunner creates a Runner from the injected repository and executors.
func NewRunner(repo Repository, exec Executors) *Runner {
	return &Runner{repo: repo, exec: exec, now: time.Now}
}

// ProcessEventTrigger runs every enabled rule bound to the given
// element+event pair. The returned error covers only the candidate fetch;
// per-rule failures are captured in the results.
func (r *Runner) ProcessEventTrigger(ctx context.Context, deploymentID, elementID, event string, rc hivelab.RunContext) ([]hivelab.ExecutionResult, error) {
	rules, err := r.repo.AutomationsByElementEvent(ctx, deploymentID, elementID, event)
	if err != nil {
		return nil, fmt.Errorf("load event rules: %w", err)
	}

	var results []hivelab.ExecutionResult
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		trigger := map[string]any{
			"type":       string(hivelab.TriggerEvent),
			"element_id": elementID,
			"event":      event,
		}
		results = append(results, r.runAutomation(ctx, rule, trigger, rc))
	}
	return results, nil
}

// ProcessScheduledTriggers runs every enabled schedule rule that is due:
// NextRun unset (never scheduled) or at/before now. Rules with a future
// NextRun are skipped silently this tick.
func (r *Runner) ProcessScheduledTriggers(ctx context.Context, deploymentID string, rc hivelab.RunContext) ([]hivelab.ExecutionResult, error) {
	rules, err := r.repo.AutomationsByTrigger(ctx, deploymentID, hivelab.TriggerSchedule)
	if err != nil {
		return nil, fmt.Errorf("load schedule rules: %w", err)
	}

	now := r.now()
	var results []hivelab.ExecutionResult
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if rule.NextRun != nil && rule.NextRun.After(now) {
			continue // not yet due
		}
		trigger := map[string]any{
			"type": string(hivelab.TriggerSchedule),
			"cron": rule.Trigger.Cron,
		}
		results = append(results, r.runAutomation(ctx, rule, trigger, rc))
	}
	return results, nil
}

// ProcessThresholdTriggers runs every enabled threshold rule whose boundary
// was crossed by this state transition: the comparison held false under the
// previous value and true under the current one. Already-satisfied
// thresholds do not re-fire (edge-triggered, not level-triggered).
// Non-numeric and missing values compare as 0.
func (r *Runner) ProcessThresholdTriggers(ctx context.Context, deploymentID string, previous, current map[string]any, rc hivelab.RunContext) ([]hivelab.ExecutionResult, error) {
	rules, err := r.repo.AutomationsByTrigger(ctx, deploymentID, hivelab.TriggerThreshold)
	if err != nil {
		return nil, fmt.Errorf("load threshold rules: %w", err)
	}

	var results []hivelab.ExecutionResult
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		prevValue, _ := LookupPath(previous, rule.Trigger.Path)
		currValue, _ := LookupPath(current, rule.Trigger.Path)
		prev, _ := toFloat64(prevValue)
		curr, _ := toFloat64(currValue)

		before := compareThreshold(rule.Trigger.Operator, prev, rule.Trigger.Value)
		after := compareThreshold(rule.Trigger.Operator, curr, rule.Trigger.Value)
		if before || !after {
			continue // no new crossing
		}

		trigger := map[string]any{
			"type":     string(hivelab.TriggerThreshold),
			"path":     rule.Trigger.Path,
			"operator": rule.Trigger.Operator,
			"value":    rule.Trigger.Value,
			"previous": prev,
			"current":  curr,
		}
		results = append(results, r.runAutomation(ctx, rule, trigger, rc))
	}
	return results, nil
}

// compareThreshold evaluates a numeric threshold comparison. Unknown
// operators never match, so the rule never fires.
func compareThreshold(op string, value, threshold float64) bool {
	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}

// runAutomation executes one rule attempt end to end:
// rate limit → conditions → actions, then always log + stats + prune.
// It never returns an error; every abnormal path collapses into the result.
func (r *Runner) runAutomation(ctx context.Context, rule *hivelab.AutomationRule, triggerData map[string]any, rc hivelab.RunContext) hivelab.ExecutionResult {
	started := r.now()
	result := hivelab.ExecutionResult{
		AutomationID:  rule.ID,
		ActionResults: []hivelab.ActionResult{},
	}

	r.attemptRun(ctx, rule, triggerData, rc, started, &result)

	result.Duration = r.now().Sub(started)
	r.finishRun(ctx, rule, triggerData, &result)
	return result
}

// attemptRun holds the fallible portion of a run so the top-level recover
// can force any panic into a failed result without losing the bookkeeping.
func (r *Runner) attemptRun(ctx context.Context, rule *hivelab.AutomationRule, triggerData map[string]any, rc hivelab.RunContext, started time.Time, result *hivelab.ExecutionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result.Status = hivelab.RunFailed
			result.Error = fmt.Sprintf("automation panicked: %v", rec)
		}
	}()

	// 1. Rate limit.
	runsToday, err := r.repo.RunsToday(ctx, rule.ID, rule.DeploymentID)
	if err != nil {
		result.Status = hivelab.RunFailed
		result.Error = fmt.Sprintf("count runs: %v", err)
		return
	}
	if decision := CanRun(rule, runsToday, started); !decision.Allowed {
		result.Status = hivelab.RunSkipped
		result.Error = decision.Reason
		return
	}

	state, err := r.repo.ToolState(ctx, rule.DeploymentID)
	if err != nil {
		result.Status = hivelab.RunFailed
		result.Error = fmt.Sprintf("load tool state: %v", err)
		return
	}

	// 2. Conditions, evaluated fresh against the live context every run.
	if len(rule.Conditions) > 0 {
		condCtx := map[string]any{
			"state":   state,
			"trigger": triggerData,
			"user":    map[string]any{"id": rc.TriggeringUserID},
		}
		condResults, pass := EvaluateAll(rule.Conditions, condCtx)
		result.ConditionResults = condResults
		if !pass {
			result.Status = hivelab.RunSkipped
			result.Error = "Conditions not met"
			return
		}
	}

	// 3. Actions, in declared order, stopping at the first failure.
	// Actions already executed are not undone.
	for _, action := range rule.Actions {
		actionResult := r.executeAction(ctx, rule, action, triggerData, state, rc)
		result.ActionResults = append(result.ActionResults, actionResult)
		if !actionResult.Success {
			result.Status = hivelab.RunFailed
			result.Error = actionResult.Error
			return
		}
	}

	result.Status = hivelab.RunSuccess
}

// finishRun writes the run record, updates the rule's counters, recomputes
// NextRun for schedule rules, and prunes history every PruneEvery-th run.
func (r *Runner) finishRun(ctx context.Context, rule *hivelab.AutomationRule, triggerData map[string]any, result *hivelab.ExecutionResult) {
	now := r.now()

	run := &hivelab.AutomationRun{
		ID:               uuid.NewString(),
		AutomationID:     rule.ID,
		DeploymentID:     rule.DeploymentID,
		Timestamp:        now,
		Status:           result.Status,
		TriggerType:      rule.Trigger.Type,
		TriggerData:      triggerData,
		ConditionResults: result.ConditionResults,
		ActionsExecuted:  succeededActionTypes(result.ActionResults),
		Error:            result.Error,
		DurationMS:       result.Duration.Milliseconds(),
	}
	if err := r.repo.LogRun(ctx, run); err != nil {
		slog.Warn("automation: failed to log run",
			"automation", rule.ID, "deployment", rule.DeploymentID, "err", err)
	}

	stats := StatsUpdate{
		LastRun:    now,
		RunCount:   rule.RunCount + 1,
		ErrorCount: rule.ErrorCount,
	}
	if result.Status == hivelab.RunFailed {
		stats.ErrorCount++
	}
	if rule.Trigger.Type == hivelab.TriggerSchedule {
		next := NextRunAfter(rule.Trigger.Cron, now)
		stats.NextRun = &next
	}
	if err := r.repo.UpdateAutomationStats(ctx, rule.ID, rule.DeploymentID, stats); err != nil {
		slog.Warn("automation: failed to update stats",
			"automation", rule.ID, "deployment", rule.DeploymentID, "err", err)
	}

	// Keep the in-memory rule in step for later rules in the same batch.
	rule.RunCount = stats.RunCount
	rule.ErrorCount = stats.ErrorCount
	rule.LastRun = &now
	if stats.NextRun != nil {
		rule.NextRun = stats.NextRun
	}

	if stats.RunCount%hivelab.PruneEvery == 0 {
		if err := r.repo.PruneOldRuns(ctx, rule.DeploymentID, hivelab.MaxRunsHistory); err != nil {
			slog.Warn("automation: failed to prune run history",
				"deployment", rule.DeploymentID, "err", err)
		}
	}
}

func succeededActionTypes(results []hivelab.ActionResult) []string {
	var types []string
	for _, res := range results {
		if res.Success {
			types = append(types, string(res.Type))
		}
	}
	return types
}
