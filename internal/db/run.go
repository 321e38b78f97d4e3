package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

// CreateRun stores one immutable run record.
func (d *DB) CreateRun(ctx context.Context, r *hivelab.AutomationRun) error {
	triggerDataJSON, _ := json.Marshal(r.TriggerData)
	conditionResultsJSON, _ := json.Marshal(r.ConditionResults)
	actionsExecutedJSON, _ := json.Marshal(r.ActionsExecuted)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO automation_runs (id, automation_id, deployment_id, timestamp, status, trigger_type, trigger_data, condition_results, actions_executed, error, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.AutomationID, r.DeploymentID, r.Timestamp,
		string(r.Status), string(r.TriggerType), triggerDataJSON,
		conditionResultsJSON, actionsExecutedJSON, r.Error, r.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run record scoped to its deployment.
func (d *DB) GetRun(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRun, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT id, automation_id, deployment_id, timestamp, status, trigger_type, trigger_data, condition_results, actions_executed, error, duration_ms
		 FROM automation_runs WHERE id = $1 AND deployment_id = $2`, id, deploymentID,
	)
	r, err := scanRunRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a deployment's runs newest first, optionally filtered to
// one automation ("" = all), with the total match count.
func (d *DB) ListRuns(ctx context.Context, deploymentID, automationID string, limit, offset int) ([]*hivelab.AutomationRun, int, error) {
	var total int
	err := d.Pool.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM automation_runs WHERE deployment_id = $1 AND ($2 = '' OR automation_id = $2)`,
		deploymentID, automationID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, automation_id, deployment_id, timestamp, status, trigger_type, trigger_data, condition_results, actions_executed, error, duration_ms
		 FROM automation_runs WHERE deployment_id = $1 AND ($2 = '' OR automation_id = $2)
		 ORDER BY timestamp DESC LIMIT $3 OFFSET $4`,
		deploymentID, automationID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*hivelab.AutomationRun
	for rows.Next() {
		r, err := scanRunRow(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	return result, total, nil
}

// CountRunsSince counts one rule's runs at or after the cutoff.
func (d *DB) CountRunsSince(ctx context.Context, deploymentID, automationID string, since time.Time) (int, error) {
	var count int
	err := d.Pool.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM automation_runs WHERE deployment_id = $1 AND automation_id = $2 AND timestamp >= $3`,
		deploymentID, automationID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count runs since: %w", err)
	}
	return count, nil
}

// PruneRuns deletes all but the newest keep records for a deployment.
func (d *DB) PruneRuns(ctx context.Context, deploymentID string, keep int) error {
	_, err := d.Pool.ExecContext(ctx,
		`DELETE FROM automation_runs WHERE deployment_id = $1 AND id NOT IN (
		     SELECT id FROM automation_runs WHERE deployment_id = $1 ORDER BY timestamp DESC LIMIT $2
		 )`,
		deploymentID, keep,
	)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

func scanRunRow(scan func(...any) error) (*hivelab.AutomationRun, error) {
	r := &hivelab.AutomationRun{}
	var status, triggerType string
	var triggerDataJSON, conditionResultsJSON, actionsExecutedJSON []byte

	err := scan(&r.ID, &r.AutomationID, &r.DeploymentID, &r.Timestamp,
		&status, &triggerType, &triggerDataJSON,
		&conditionResultsJSON, &actionsExecutedJSON, &r.Error, &r.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	r.Status = hivelab.RunStatus(status)
	r.TriggerType = hivelab.TriggerType(triggerType)
	json.Unmarshal(triggerDataJSON, &r.TriggerData)
	json.Unmarshal(conditionResultsJSON, &r.ConditionResults)
	json.Unmarshal(actionsExecutedJSON, &r.ActionsExecuted)
	return r, nil
}
