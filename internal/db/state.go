package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetToolState reads a deployment's shared state. Missing deployments yield
// an empty map.
func (d *DB) GetToolState(ctx context.Context, deploymentID string) (map[string]any, error) {
	var stateJSON []byte
	err := d.Pool.QueryRowContext(ctx,
		`SELECT state FROM tool_states WHERE deployment_id = $1`, deploymentID,
	).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tool state: %w", err)
	}

	state := map[string]any{}
	json.Unmarshal(stateJSON, &state)
	return state, nil
}

// SetToolState replaces a deployment's shared state.
func (d *DB) SetToolState(ctx context.Context, deploymentID string, state map[string]any) error {
	stateJSON, _ := json.Marshal(state)
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO tool_states (deployment_id, state, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (deployment_id) DO UPDATE SET state = $2, updated_at = NOW()`,
		deploymentID, stateJSON,
	)
	if err != nil {
		return fmt.Errorf("set tool state: %w", err)
	}
	return nil
}
