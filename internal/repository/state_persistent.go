package repository

import (
	"context"
	"log/slog"

	"github.com/campushive/hivelab/internal/db"
)

// PersistentStateRepository wraps a MemoryStateRepository with a PostgreSQL
// backend. Reads come from memory once warmed; writes go to both stores.
type PersistentStateRepository struct {
	mem *MemoryStateRepository
	db  *db.DB
}

func NewPersistentStateRepository(mem *MemoryStateRepository, database *db.DB) *PersistentStateRepository {
	return &PersistentStateRepository{mem: mem, db: database}
}

func (r *PersistentStateRepository) Get(ctx context.Context, deploymentID string) (map[string]any, error) {
	state, err := r.mem.Get(ctx, deploymentID)
	if err == nil && len(state) > 0 {
		return state, nil
	}

	dbState, dbErr := r.db.GetToolState(ctx, deploymentID)
	if dbErr != nil {
		return state, err
	}
	if len(dbState) > 0 {
		_ = r.mem.Set(ctx, deploymentID, dbState)
	}
	return dbState, nil
}

func (r *PersistentStateRepository) Set(ctx context.Context, deploymentID string, state map[string]any) error {
	_ = r.mem.Set(ctx, deploymentID, state)
	if err := r.db.SetToolState(ctx, deploymentID, state); err != nil {
		slog.Warn("db set tool state failed, in-memory only", "deployment", deploymentID, "err", err)
	}
	return nil
}
