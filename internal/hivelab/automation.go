// Package hivelab holds the core domain types for tool-deployment
// automations: rules, triggers, conditions, actions, and run records.
package hivelab

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxRunsHistory is how many run records are retained per deployment when
// the runner prunes old logs.
const MaxRunsHistory = 50

// PruneEvery controls the pruning cadence: history is pruned after every
// Nth run of a rule.
const PruneEvery = 10

// DefaultMaxRunsPerDay caps rule executions when the rule does not carry
// its own rate limit.
const DefaultMaxRunsPerDay = 100

// --- Triggers ---

// TriggerType identifies what causes a rule to be considered.
type TriggerType string

const (
	TriggerEvent     TriggerType = "event"
	TriggerSchedule  TriggerType = "schedule"
	TriggerThreshold TriggerType = "threshold"
)

// Trigger is a tagged union keyed by Type. Only the fields for the active
// type are meaningful.
type Trigger struct {
	Type TriggerType `json:"type"`

	// event
	ElementID string `json:"element_id,omitempty"`
	Event     string `json:"event,omitempty"`

	// schedule
	Cron string `json:"cron,omitempty"`

	// threshold
	Path     string  `json:"path,omitempty"`
	Operator string  `json:"operator,omitempty"` // ">" "<" ">=" "<=" "==" "!="
	Value    float64 `json:"value,omitempty"`
}

// --- Conditions ---

// ConditionOperator is the comparison applied by a single condition.
type ConditionOperator string

const (
	OpEquals              ConditionOperator = "equals"
	OpNotEquals           ConditionOperator = "notEquals"
	OpGreaterThan         ConditionOperator = "greaterThan"
	OpLessThan            ConditionOperator = "lessThan"
	OpGreaterThanOrEquals ConditionOperator = "greaterThanOrEquals"
	OpLessThanOrEquals    ConditionOperator = "lessThanOrEquals"
	OpContains            ConditionOperator = "contains"
	OpNotContains         ConditionOperator = "notContains"
	OpIn                  ConditionOperator = "in"
	OpNotIn               ConditionOperator = "notIn"
	OpExists              ConditionOperator = "exists"
	OpNotExists           ConditionOperator = "notExists"
	// OpExpression evaluates Expression with expr-lang against the context.
	OpExpression ConditionOperator = "expression"
)

// Condition is a single predicate over the execution context.
type Condition struct {
	Field      string            `json:"field,omitempty"`
	Operator   ConditionOperator `json:"operator"`
	Value      any               `json:"value,omitempty"`
	Expression string            `json:"expression,omitempty"`
}

// GroupLogic combines the children of a ConditionGroup.
type GroupLogic string

const (
	LogicAnd GroupLogic = "and"
	LogicOr  GroupLogic = "or"
)

// ConditionGroup nests conditions to arbitrary depth.
type ConditionGroup struct {
	Logic      GroupLogic      `json:"logic"`
	Conditions []ConditionNode `json:"conditions"`
}

// ConditionNode is either a single Condition or a nested ConditionGroup.
// Authored JSON is flat: an object with a "logic" key is a group, anything
// else is a condition.
type ConditionNode struct {
	Condition *Condition
	Group     *ConditionGroup
}

func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	var probe struct {
		Logic string `json:"logic"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("condition node: %w", err)
	}
	if probe.Logic != "" {
		g := &ConditionGroup{}
		if err := json.Unmarshal(data, g); err != nil {
			return fmt.Errorf("condition group: %w", err)
		}
		n.Group = g
		return nil
	}
	c := &Condition{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	n.Condition = c
	return nil
}

func (n ConditionNode) MarshalJSON() ([]byte, error) {
	if n.Group != nil {
		return json.Marshal(n.Group)
	}
	return json.Marshal(n.Condition)
}

// --- Actions ---

// ActionType identifies the effect a rule performs.
type ActionType string

const (
	ActionNotify      ActionType = "notify"
	ActionMutate      ActionType = "mutate"
	ActionTriggerTool ActionType = "triggerTool"
)

// NotifyChannel selects the delivery channel for a notify action.
type NotifyChannel string

const (
	ChannelEmail NotifyChannel = "email"
	ChannelPush  NotifyChannel = "push"
)

// RecipientKind selects how a notify action's recipients are resolved.
type RecipientKind string

const (
	RecipientsAll  RecipientKind = "all"
	RecipientsRole RecipientKind = "role"
	RecipientsUser RecipientKind = "user"
)

// Action is a tagged union keyed by Type. Only the fields for the active
// type are meaningful.
type Action struct {
	Type ActionType `json:"type"`

	// notify
	Channel    NotifyChannel `json:"channel,omitempty"`
	To         RecipientKind `json:"to,omitempty"`
	RoleName   string        `json:"role_name,omitempty"`
	UserID     string        `json:"user_id,omitempty"`
	TemplateID string        `json:"template_id,omitempty"`
	Subject    string        `json:"subject,omitempty"`
	Body       string        `json:"body,omitempty"`
	Title      string        `json:"title,omitempty"`
	Link       string        `json:"link,omitempty"`

	// mutate
	ElementID string         `json:"element_id,omitempty"`
	Mutation  map[string]any `json:"mutation,omitempty"`

	// triggerTool
	TargetDeploymentID string         `json:"target_deployment_id,omitempty"`
	Event              string         `json:"event,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
}

// --- Rate limiting ---

// RateLimit bounds how often a rule may run. Zero values fall back to the
// engine defaults.
type RateLimit struct {
	MaxRunsPerDay   int `json:"max_runs_per_day,omitempty"`
	CooldownSeconds int `json:"cooldown_seconds,omitempty"`
}

// --- Rules ---

// AutomationRule is a user-authored trigger-condition-action record attached
// to exactly one tool deployment. RunCount and ErrorCount only increase and
// are mutated only by the runner; NextRun is meaningful only for
// schedule-triggered rules.
type AutomationRule struct {
	ID           string          `json:"id"`
	DeploymentID string          `json:"deployment_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Enabled      bool            `json:"enabled"`
	Trigger      Trigger         `json:"trigger"`
	Conditions   []ConditionNode `json:"conditions,omitempty"` // implicit AND
	Actions      []Action        `json:"actions"`
	RateLimit    RateLimit       `json:"rate_limit,omitempty"`

	RunCount   int        `json:"run_count"`
	ErrorCount int        `json:"error_count"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep-enough copy for handing rules across store
// boundaries: slices are copied, timestamps are re-pointed, and the
// maps inside conditions and actions stay shared (treated as read-only).
func (r *AutomationRule) Clone() *AutomationRule {
	if r == nil {
		return nil
	}
	out := *r
	out.Conditions = append([]ConditionNode(nil), r.Conditions...)
	out.Actions = append([]Action(nil), r.Actions...)
	if r.LastRun != nil {
		t := *r.LastRun
		out.LastRun = &t
	}
	if r.NextRun != nil {
		t := *r.NextRun
		out.NextRun = &t
	}
	return &out
}

// --- Runs ---

// RunStatus is the terminal outcome of one rule execution attempt.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunSkipped RunStatus = "skipped"
	RunFailed  RunStatus = "failed"
)

// AutomationRun is the immutable log record of one execution attempt.
// Exactly one is written per attempt, on every path.
type AutomationRun struct {
	ID               string         `json:"id"`
	AutomationID     string         `json:"automation_id"`
	DeploymentID     string         `json:"deployment_id"`
	Timestamp        time.Time      `json:"timestamp"`
	Status           RunStatus      `json:"status"`
	TriggerType      TriggerType    `json:"trigger_type"`
	TriggerData      map[string]any `json:"trigger_data,omitempty"`
	ConditionResults []bool         `json:"condition_results,omitempty"`
	ActionsExecuted  []string       `json:"actions_executed,omitempty"`
	Error            string         `json:"error,omitempty"`
	DurationMS       int64          `json:"duration_ms"`
}

// ActionResult is the outcome of a single action within a run.
type ActionResult struct {
	Type    ActionType     `json:"type"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Output  map[string]any `json:"output,omitempty"`
}

// ExecutionResult is returned to the caller for each rule processed in a
// trigger batch.
type ExecutionResult struct {
	AutomationID     string         `json:"automation_id"`
	Status           RunStatus      `json:"status"`
	ConditionResults []bool         `json:"condition_results,omitempty"`
	ActionResults    []ActionResult `json:"action_results"`
	Error            string         `json:"error,omitempty"`
	Duration         time.Duration  `json:"duration"`
}

// RunContext carries host-supplied context for one trigger-processing pass.
type RunContext struct {
	TriggeringUserID string         `json:"triggering_user_id,omitempty"`
	SpaceID          string         `json:"space_id,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
}

// --- Deployments & membership ---

// Deployment is one instance of a tool placed in a community space; the unit
// of ownership for automation rules and shared state.
type Deployment struct {
	ID        string    `json:"id"`
	SpaceID   string    `json:"space_id"`
	ToolID    string    `json:"tool_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a space member visible to a deployment, used for notification
// recipient resolution.
type Member struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
