package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

// CreateAutomation stores a new automation rule.
func (d *DB) CreateAutomation(ctx context.Context, r *hivelab.AutomationRule) error {
	triggerJSON, _ := json.Marshal(r.Trigger)
	conditionsJSON, _ := json.Marshal(r.Conditions)
	actionsJSON, _ := json.Marshal(r.Actions)
	rateLimitJSON, _ := json.Marshal(r.RateLimit)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO automations (id, deployment_id, name, description, enabled, trigger, conditions, actions, rate_limit, run_count, error_count, last_run, next_run, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.DeploymentID, r.Name, r.Description, r.Enabled,
		triggerJSON, conditionsJSON, actionsJSON, rateLimitJSON,
		r.RunCount, r.ErrorCount, r.LastRun, r.NextRun, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert automation: %w", err)
	}
	return nil
}

// GetAutomation retrieves one rule scoped to its deployment.
func (d *DB) GetAutomation(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRule, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT id, deployment_id, name, description, enabled, trigger, conditions, actions, rate_limit, run_count, error_count, last_run, next_run, created_at, updated_at
		 FROM automations WHERE id = $1 AND deployment_id = $2`, id, deploymentID,
	)
	r, err := scanAutomationRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("automation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get automation: %w", err)
	}
	return r, nil
}

// UpdateAutomation replaces a rule's definition fields.
func (d *DB) UpdateAutomation(ctx context.Context, r *hivelab.AutomationRule) error {
	triggerJSON, _ := json.Marshal(r.Trigger)
	conditionsJSON, _ := json.Marshal(r.Conditions)
	actionsJSON, _ := json.Marshal(r.Actions)
	rateLimitJSON, _ := json.Marshal(r.RateLimit)

	_, err := d.Pool.ExecContext(ctx,
		`UPDATE automations SET name = $1, description = $2, enabled = $3, trigger = $4, conditions = $5, actions = $6, rate_limit = $7, next_run = $8, updated_at = $9
		 WHERE id = $10 AND deployment_id = $11`,
		r.Name, r.Description, r.Enabled, triggerJSON, conditionsJSON, actionsJSON, rateLimitJSON,
		r.NextRun, r.UpdatedAt, r.ID, r.DeploymentID,
	)
	if err != nil {
		return fmt.Errorf("update automation: %w", err)
	}
	return nil
}

// UpdateAutomationStats writes the runner's post-run counters for one rule.
func (d *DB) UpdateAutomationStats(ctx context.Context, deploymentID, id string, runCount, errorCount int, lastRun time.Time, nextRun *time.Time) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE automations SET run_count = $1, error_count = $2, last_run = $3, next_run = COALESCE($4, next_run), updated_at = $3
		 WHERE id = $5 AND deployment_id = $6`,
		runCount, errorCount, lastRun, nextRun, id, deploymentID,
	)
	if err != nil {
		return fmt.Errorf("update automation stats: %w", err)
	}
	return nil
}

// DeleteAutomation removes a rule.
func (d *DB) DeleteAutomation(ctx context.Context, deploymentID, id string) error {
	_, err := d.Pool.ExecContext(ctx,
		`DELETE FROM automations WHERE id = $1 AND deployment_id = $2`, id, deploymentID)
	if err != nil {
		return fmt.Errorf("delete automation: %w", err)
	}
	return nil
}

// ListAutomations returns a deployment's rules in creation order.
func (d *DB) ListAutomations(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, deployment_id, name, description, enabled, trigger, conditions, actions, rate_limit, run_count, error_count, last_run, next_run, created_at, updated_at
		 FROM automations WHERE deployment_id = $1 ORDER BY created_at, id`, deploymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list automations: %w", err)
	}
	defer rows.Close()

	var result []*hivelab.AutomationRule
	for rows.Next() {
		r, err := scanAutomationRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan automation: %w", err)
		}
		result = append(result, r)
	}
	return result, nil
}

// ListAllAutomations returns every stored rule, for warming the in-memory
// store after a restart.
func (d *DB) ListAllAutomations(ctx context.Context) ([]*hivelab.AutomationRule, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, deployment_id, name, description, enabled, trigger, conditions, actions, rate_limit, run_count, error_count, last_run, next_run, created_at, updated_at
		 FROM automations ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all automations: %w", err)
	}
	defer rows.Close()

	var result []*hivelab.AutomationRule
	for rows.Next() {
		r, err := scanAutomationRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan automation: %w", err)
		}
		result = append(result, r)
	}
	return result, nil
}

func scanAutomationRow(scan func(...any) error) (*hivelab.AutomationRule, error) {
	r := &hivelab.AutomationRule{}
	var triggerJSON, conditionsJSON, actionsJSON, rateLimitJSON []byte

	err := scan(&r.ID, &r.DeploymentID, &r.Name, &r.Description, &r.Enabled,
		&triggerJSON, &conditionsJSON, &actionsJSON, &rateLimitJSON,
		&r.RunCount, &r.ErrorCount, &r.LastRun, &r.NextRun, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal(triggerJSON, &r.Trigger)
	json.Unmarshal(conditionsJSON, &r.Conditions)
	json.Unmarshal(actionsJSON, &r.Actions)
	json.Unmarshal(rateLimitJSON, &r.RateLimit)
	return r, nil
}
