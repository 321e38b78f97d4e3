package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/campushive/hivelab/internal/hivelab"
	memstore "github.com/campushive/hivelab/internal/repository/memory"
)

// MemoryDeploymentRepository is a thread-safe in-memory DeploymentRepository.
type MemoryDeploymentRepository struct {
	store *memstore.Store[*hivelab.Deployment]
}

func NewMemoryDeploymentRepository() *MemoryDeploymentRepository {
	return &MemoryDeploymentRepository{
		store: memstore.New(func(d *hivelab.Deployment) string { return d.ID }),
	}
}

func (r *MemoryDeploymentRepository) Create(ctx context.Context, dep *hivelab.Deployment) error {
	copied := *dep
	return r.store.Set(ctx, &copied)
}

func (r *MemoryDeploymentRepository) Get(ctx context.Context, id string) (*hivelab.Deployment, error) {
	dep, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	copied := *dep
	return &copied, nil
}

func (r *MemoryDeploymentRepository) List(ctx context.Context) ([]*hivelab.Deployment, error) {
	deps, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].ID < deps[j].ID })
	out := make([]*hivelab.Deployment, len(deps))
	for i, dep := range deps {
		copied := *dep
		out[i] = &copied
	}
	return out, nil
}

func (r *MemoryDeploymentRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); errors.Is(err, memstore.ErrNotFound) {
		return fmt.Errorf("%w: deployment %s", ErrNotFound, id)
	}
	return nil
}

// MemoryMembershipRepository is a thread-safe in-memory MembershipRepository.
type MemoryMembershipRepository struct {
	mu      sync.RWMutex
	members map[string][]hivelab.Member
}

func NewMemoryMembershipRepository() *MemoryMembershipRepository {
	return &MemoryMembershipRepository{members: make(map[string][]hivelab.Member)}
}

func (r *MemoryMembershipRepository) Members(_ context.Context, deploymentID string) ([]hivelab.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]hivelab.Member(nil), r.members[deploymentID]...), nil
}

func (r *MemoryMembershipRepository) SetMembers(_ context.Context, deploymentID string, members []hivelab.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[deploymentID] = append([]hivelab.Member(nil), members...)
	return nil
}
