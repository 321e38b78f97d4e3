package repository

import (
	"context"
	"log/slog"

	"github.com/campushive/hivelab/internal/db"
	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
)

// PersistentAutomationRepository wraps a MemoryAutomationRepository with a
// PostgreSQL backend. Writes go to both stores (DB failure is logged but
// non-fatal). Reads come from memory; the database is the restart source.
type PersistentAutomationRepository struct {
	mem *MemoryAutomationRepository
	db  *db.DB
}

func NewPersistentAutomationRepository(mem *MemoryAutomationRepository, database *db.DB) *PersistentAutomationRepository {
	return &PersistentAutomationRepository{mem: mem, db: database}
}

// WarmUp loads every stored rule from the database into memory, so list and
// trigger queries are complete after a restart.
func (r *PersistentAutomationRepository) WarmUp(ctx context.Context) (int, error) {
	rules, err := r.db.ListAllAutomations(ctx)
	if err != nil {
		return 0, err
	}
	for _, rule := range rules {
		_ = r.mem.Create(ctx, rule)
	}
	return len(rules), nil
}

func (r *PersistentAutomationRepository) Create(ctx context.Context, rule *hivelab.AutomationRule) error {
	_ = r.mem.Create(ctx, rule)
	if err := r.db.CreateAutomation(ctx, rule); err != nil {
		slog.Warn("db create automation failed, in-memory only", "automation", rule.ID, "err", err)
	}
	return nil
}

func (r *PersistentAutomationRepository) Get(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRule, error) {
	rule, err := r.mem.Get(ctx, deploymentID, id)
	if err == nil {
		return rule, nil
	}

	dbRule, dbErr := r.db.GetAutomation(ctx, deploymentID, id)
	if dbErr != nil {
		return nil, err // return original ErrNotFound
	}

	_ = r.mem.Create(ctx, dbRule)
	return dbRule, nil
}

func (r *PersistentAutomationRepository) Update(ctx context.Context, rule *hivelab.AutomationRule) error {
	if err := r.mem.Update(ctx, rule); err != nil {
		return err
	}
	if err := r.db.UpdateAutomation(ctx, rule); err != nil {
		slog.Warn("db update automation failed, in-memory only", "automation", rule.ID, "err", err)
	}
	return nil
}

func (r *PersistentAutomationRepository) Delete(ctx context.Context, deploymentID, id string) error {
	if err := r.mem.Delete(ctx, deploymentID, id); err != nil {
		return err
	}
	if err := r.db.DeleteAutomation(ctx, deploymentID, id); err != nil {
		slog.Warn("db delete automation failed, in-memory only", "automation", id, "err", err)
	}
	return nil
}

func (r *PersistentAutomationRepository) ListByDeployment(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error) {
	return r.mem.ListByDeployment(ctx, deploymentID)
}

func (r *PersistentAutomationRepository) ListByTrigger(ctx context.Context, deploymentID string, trigger hivelab.TriggerType) ([]*hivelab.AutomationRule, error) {
	return r.mem.ListByTrigger(ctx, deploymentID, trigger)
}

func (r *PersistentAutomationRepository) ListByElementEvent(ctx context.Context, deploymentID, elementID, event string) ([]*hivelab.AutomationRule, error) {
	return r.mem.ListByElementEvent(ctx, deploymentID, elementID, event)
}

func (r *PersistentAutomationRepository) DeploymentsWithTrigger(ctx context.Context, trigger hivelab.TriggerType) ([]string, error) {
	return r.mem.DeploymentsWithTrigger(ctx, trigger)
}

func (r *PersistentAutomationRepository) UpdateStats(ctx context.Context, deploymentID, id string, stats engine.StatsUpdate) error {
	if err := r.mem.UpdateStats(ctx, deploymentID, id, stats); err != nil {
		return err
	}
	if err := r.db.UpdateAutomationStats(ctx, deploymentID, id, stats.RunCount, stats.ErrorCount, stats.LastRun, stats.NextRun); err != nil {
		slog.Warn("db update automation stats failed, in-memory only", "automation", id, "err", err)
	}
	return nil
}
