package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/campushive/hivelab/internal/db"
	"github.com/campushive/hivelab/internal/hivelab"
)

// PersistentRunRepository wraps a MemoryRunRepository with a PostgreSQL
// backend. Writes go to both stores (DB failure is logged but non-fatal).
// Listing prefers the database, falling back to memory.
type PersistentRunRepository struct {
	mem *MemoryRunRepository
	db  *db.DB
}

func NewPersistentRunRepository(mem *MemoryRunRepository, database *db.DB) *PersistentRunRepository {
	return &PersistentRunRepository{mem: mem, db: database}
}

func (r *PersistentRunRepository) Create(ctx context.Context, run *hivelab.AutomationRun) error {
	_ = r.mem.Create(ctx, run)
	if err := r.db.CreateRun(ctx, run); err != nil {
		slog.Warn("db create run failed, in-memory only", "run", run.ID, "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) Get(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRun, error) {
	run, err := r.mem.Get(ctx, deploymentID, id)
	if err == nil {
		return run, nil
	}

	dbRun, dbErr := r.db.GetRun(ctx, deploymentID, id)
	if dbErr != nil {
		return nil, err // return original ErrNotFound
	}
	return dbRun, nil
}

func (r *PersistentRunRepository) ListByDeployment(ctx context.Context, deploymentID string, limit, offset int) ([]*hivelab.AutomationRun, int, error) {
	runs, total, err := r.db.ListRuns(ctx, deploymentID, "", limit, offset)
	if err == nil {
		return runs, total, nil
	}
	slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	return r.mem.ListByDeployment(ctx, deploymentID, limit, offset)
}

func (r *PersistentRunRepository) ListByAutomation(ctx context.Context, deploymentID, automationID string, limit, offset int) ([]*hivelab.AutomationRun, int, error) {
	runs, total, err := r.db.ListRuns(ctx, deploymentID, automationID, limit, offset)
	if err == nil {
		return runs, total, nil
	}
	slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	return r.mem.ListByAutomation(ctx, deploymentID, automationID, limit, offset)
}

func (r *PersistentRunRepository) CountSince(ctx context.Context, deploymentID, automationID string, since time.Time) (int, error) {
	count, err := r.db.CountRunsSince(ctx, deploymentID, automationID, since)
	if err == nil {
		return count, nil
	}
	slog.Warn("db count runs failed, falling back to in-memory", "err", err)
	return r.mem.CountSince(ctx, deploymentID, automationID, since)
}

func (r *PersistentRunRepository) Prune(ctx context.Context, deploymentID string, keep int) error {
	_ = r.mem.Prune(ctx, deploymentID, keep)
	if err := r.db.PruneRuns(ctx, deploymentID, keep); err != nil {
		slog.Warn("db prune runs failed, in-memory only", "deployment", deploymentID, "err", err)
	}
	return nil
}
