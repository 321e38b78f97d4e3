package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

// MemoryRunRepository stores run records in memory, grouped per deployment in
// insertion order.
type MemoryRunRepository struct {
	mu     sync.RWMutex
	byID   map[string]*hivelab.AutomationRun
	byDep  map[string][]string // run IDs in insertion order
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{
		byID:  make(map[string]*hivelab.AutomationRun),
		byDep: make(map[string][]string),
	}
}

func (r *MemoryRunRepository) Create(_ context.Context, run *hivelab.AutomationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *run
	r.byID[run.ID] = &copied
	r.byDep[run.DeploymentID] = append(r.byDep[run.DeploymentID], run.ID)
	return nil
}

func (r *MemoryRunRepository) Get(_ context.Context, deploymentID, id string) (*hivelab.AutomationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.byID[id]
	if !ok || run.DeploymentID != deploymentID {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	copied := *run
	return &copied, nil
}

func (r *MemoryRunRepository) ListByDeployment(_ context.Context, deploymentID string, limit, offset int) ([]*hivelab.AutomationRun, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paginateRuns(r.collect(deploymentID, ""), limit, offset)
}

func (r *MemoryRunRepository) ListByAutomation(_ context.Context, deploymentID, automationID string, limit, offset int) ([]*hivelab.AutomationRun, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paginateRuns(r.collect(deploymentID, automationID), limit, offset)
}

func (r *MemoryRunRepository) CountSince(_ context.Context, deploymentID, automationID string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, id := range r.byDep[deploymentID] {
		run := r.byID[id]
		if run.AutomationID == automationID && !run.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRunRepository) Prune(_ context.Context, deploymentID string, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byDep[deploymentID]
	if len(ids) <= keep {
		return nil
	}
	drop := ids[:len(ids)-keep]
	for _, id := range drop {
		delete(r.byID, id)
	}
	r.byDep[deploymentID] = append([]string(nil), ids[len(ids)-keep:]...)
	return nil
}

// collect returns cloned runs newest first. Callers hold the read lock.
func (r *MemoryRunRepository) collect(deploymentID, automationID string) []*hivelab.AutomationRun {
	var out []*hivelab.AutomationRun
	for _, id := range r.byDep[deploymentID] {
		run := r.byID[id]
		if automationID != "" && run.AutomationID != automationID {
			continue
		}
		copied := *run
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func paginateRuns(runs []*hivelab.AutomationRun, limit, offset int) ([]*hivelab.AutomationRun, int, error) {
	total := len(runs)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return runs[offset:end], total, nil
}
