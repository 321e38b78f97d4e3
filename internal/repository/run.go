package repository

import (
	"context"
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

// RunRepository abstracts persistence for automation run records. Records are
// immutable once written; retention is enforced through Prune.
type RunRepository interface {
	Create(ctx context.Context, run *hivelab.AutomationRun) error
	Get(ctx context.Context, deploymentID, id string) (*hivelab.AutomationRun, error)
	// ListByDeployment returns runs newest first with the total match count.
	ListByDeployment(ctx context.Context, deploymentID string, limit, offset int) ([]*hivelab.AutomationRun, int, error)
	// ListByAutomation returns one rule's runs newest first.
	ListByAutomation(ctx context.Context, deploymentID, automationID string, limit, offset int) ([]*hivelab.AutomationRun, int, error)
	// CountSince counts a rule's runs at or after the cutoff.
	CountSince(ctx context.Context, deploymentID, automationID string, since time.Time) (int, error)
	// Prune trims a deployment's history to the newest keep records.
	Prune(ctx context.Context, deploymentID string, keep int) error
}
