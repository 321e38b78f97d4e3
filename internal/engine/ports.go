package engine

import (
	"context"
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

// Repository abstracts all durable state the runner touches. The engine
// performs no direct I/O; hosts inject an implementation.
type Repository interface {
	// Rule queries (read-only).
	Automations(ctx context.Context, deploymentID string) ([]*hivelab.AutomationRule, error)
	AutomationsByTrigger(ctx context.Context, deploymentID string, trigger hivelab.TriggerType) ([]*hivelab.AutomationRule, error)
	AutomationsByElementEvent(ctx context.Context, deploymentID, elementID, event string) ([]*hivelab.AutomationRule, error)

	// ToolState reads the deployment's current shared state.
	ToolState(ctx context.Context, deploymentID string) (map[string]any, error)

	// UpdateAutomationStats writes a single rule's post-run bookkeeping.
	UpdateAutomationStats(ctx context.Context, automationID, deploymentID string, stats StatsUpdate) error

	// LogRun appends one immutable run record.
	LogRun(ctx context.Context, run *hivelab.AutomationRun) error

	// RunsToday counts a rule's runs since local midnight, for rate limiting.
	RunsToday(ctx context.Context, automationID, deploymentID string) (int, error)

	// PruneOldRuns trims the deployment's run history to the newest keep records.
	PruneOldRuns(ctx context.Context, deploymentID string, keep int) error
}

// StatsUpdate carries the per-run counter and timestamp changes for one rule.
// NextRun is set only for schedule-triggered rules.
type StatsUpdate struct {
	LastRun    time.Time
	RunCount   int
	ErrorCount int
	NextRun    *time.Time
}

// SendResult reports delivery outcomes for a notify action. Partial failures
// are carried in Errors and do not fail the action while Sent > 0.
type SendResult struct {
	Sent   int
	Errors []string
}

// EmailRequest asks the host to deliver a templated email to resolved users.
type EmailRequest struct {
	DeploymentID string
	TemplateID   string
	To           []string // user IDs
	Subject      string
	Body         string
	Variables    map[string]any
}

// EmailSender delivers notify/email actions.
type EmailSender interface {
	SendEmail(ctx context.Context, req EmailRequest) (SendResult, error)
}

// PushRequest asks the host to deliver a push notification to resolved users.
type PushRequest struct {
	DeploymentID string
	To           []string // user IDs
	Title        string
	Body         string
	Link         string
	Variables    map[string]any
}

// PushSender delivers notify/push actions. Optional capability: a nil
// PushSender in Executors makes push actions fail without being attempted.
type PushSender interface {
	SendPush(ctx context.Context, req PushRequest) (SendResult, error)
}

// MutateRequest asks the host to patch one element's state.
type MutateRequest struct {
	DeploymentID string
	ElementID    string
	Mutation     map[string]any
}

// ElementMutator applies mutate actions. Errors pass through to the run
// record verbatim.
type ElementMutator interface {
	MutateElement(ctx context.Context, req MutateRequest) error
}

// ToolTriggerRequest fires a named event on another deployment.
type ToolTriggerRequest struct {
	SourceDeploymentID string
	TargetDeploymentID string
	Event              string
	Data               map[string]any
}

// ToolTrigger dispatches cross-tool trigger actions.
type ToolTrigger interface {
	TriggerTool(ctx context.Context, req ToolTriggerRequest) error
}

// RecipientQuery describes how a notify action's audience is resolved.
type RecipientQuery struct {
	DeploymentID     string
	To               hivelab.RecipientKind
	RoleName         string
	UserID           string
	TriggeringUserID string
}

// RecipientResolver maps a recipient spec to concrete user IDs.
type RecipientResolver interface {
	ResolveRecipients(ctx context.Context, q RecipientQuery) ([]string, error)
}

// Executors bundles the host-supplied action callbacks. Email, Mutator,
// Tools, and Recipients are required; Push is an optional capability.
type Executors struct {
	Email      EmailSender
	Push       PushSender
	Mutator    ElementMutator
	Tools      ToolTrigger
	Recipients RecipientResolver
}
