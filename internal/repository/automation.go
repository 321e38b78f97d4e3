package repository

import (
	"context"
	"errors"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AutomationRepository abstracts persistence for automation rules. Rules are
// scoped to a deployment; every lookup carries the deployment ID.
type AutomationRepository interface {
	Create(ctx context.Context, rule *hivelab.AutomationRule) error
	Get(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRule, error)
	Update(ctx context.Context, rule *hivelab.AutomationRule) error
	Delete(ctx context.Context, deploymentID, id string) error
	ListByDeployment(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error)
	ListByTrigger(ctx context.Context, deploymentID string, trigger hivelab.TriggerType) ([]*hivelab.AutomationRule, error)
	ListByElementEvent(ctx context.Context, deploymentID, elementID, event string) ([]*hivelab.AutomationRule, error)
	// DeploymentsWithTrigger lists deployment IDs owning at least one enabled
	// rule with the given trigger type. The scheduler tick fans out over it.
	DeploymentsWithTrigger(ctx context.Context, trigger hivelab.TriggerType) ([]string, error)
	// UpdateStats applies the runner's post-run bookkeeping to one rule.
	UpdateStats(ctx context.Context, deploymentID, id string, stats engine.StatsUpdate) error
}
