package repository

import (
	"context"

	"github.com/campushive/hivelab/internal/hivelab"
)

// DeploymentRepository abstracts the deployments visible to this engine.
// Deployments are owned by the host platform; the engine keeps a synced copy
// for scheduling and scoping.
type DeploymentRepository interface {
	Create(ctx context.Context, dep *hivelab.Deployment) error
	Get(ctx context.Context, id string) (*hivelab.Deployment, error)
	List(ctx context.Context) ([]*hivelab.Deployment, error)
	Delete(ctx context.Context, id string) error
}

// MembershipRepository maps deployments to the space members that can be
// notification recipients.
type MembershipRepository interface {
	Members(ctx context.Context, deploymentID string) ([]hivelab.Member, error)
	SetMembers(ctx context.Context, deploymentID string, members []hivelab.Member) error
}
