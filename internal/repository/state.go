package repository

import "context"

// StateRepository abstracts persistence for a deployment's shared tool state.
type StateRepository interface {
	// Get returns the current state. Missing deployments yield an empty map.
	Get(ctx context.Context, deploymentID string) (map[string]any, error)
	// Set replaces the state wholesale.
	Set(ctx context.Context, deploymentID string, state map[string]any) error
}
