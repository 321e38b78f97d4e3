package repository

import (
	"context"
	"sync"
)

// MemoryStateRepository stores tool shared state in memory. Reads and writes
// deep-copy nested maps so stored state never aliases caller data.
type MemoryStateRepository struct {
	mu     sync.RWMutex
	states map[string]map[string]any
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{states: make(map[string]map[string]any)}
}

func (r *MemoryStateRepository) Get(_ context.Context, deploymentID string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[deploymentID]
	if !ok {
		return map[string]any{}, nil
	}
	return deepCopyMap(state), nil
}

func (r *MemoryStateRepository) Set(_ context.Context, deploymentID string, state map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[deploymentID] = deepCopyMap(state)
	return nil
}

// deepCopyMap copies nested map[string]any and []any values; scalars are
// shared (JSON-decoded values are immutable in practice).
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
