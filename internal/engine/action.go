package engine

// action.go — per-action dispatch. Unknown action types and unknown notify
// channels fail explicitly rather than silently no-op, preserving the
// fail-fast-and-log contract for future types crossing a version boundary.

import (
	"context"
	"fmt"

	"github.com/campushive/hivelab/internal/hivelab"
)

// executeAction runs one action and reports its outcome. Failures never
// propagate as errors; the runner's fail-fast loop reads Success.
func (r *Runner) executeAction(ctx context.Context, rule *hivelab.AutomationRule, action hivelab.Action, triggerData, state map[string]any, rc hivelab.RunContext) hivelab.ActionResult {
	result := hivelab.ActionResult{Type: action.Type}

	switch action.Type {
	case hivelab.ActionNotify:
		return r.executeNotify(ctx, rule, action, triggerData, state, rc)

	case hivelab.ActionMutate:
		err := r.exec.Mutator.MutateElement(ctx, MutateRequest{
			DeploymentID: rule.DeploymentID,
			ElementID:    action.ElementID,
			Mutation:     action.Mutation,
		})
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Success = true
		result.Output = map[string]any{"element_id": action.ElementID}
		return result

	case hivelab.ActionTriggerTool:
		err := r.exec.Tools.TriggerTool(ctx, ToolTriggerRequest{
			SourceDeploymentID: rule.DeploymentID,
			TargetDeploymentID: action.TargetDeploymentID,
			Event:              action.Event,
			Data:               action.Data,
		})
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Success = true
		result.Output = map[string]any{"target_deployment_id": action.TargetDeploymentID}
		return result

	default:
		result.Error = fmt.Sprintf("unknown action type %q", action.Type)
		return result
	}
}

// executeNotify resolves recipients and dispatches to the channel's sender.
func (r *Runner) executeNotify(ctx context.Context, rule *hivelab.AutomationRule, action hivelab.Action, triggerData, state map[string]any, rc hivelab.RunContext) hivelab.ActionResult {
	result := hivelab.ActionResult{Type: action.Type}

	recipients, err := r.exec.Recipients.ResolveRecipients(ctx, RecipientQuery{
		DeploymentID:     rule.DeploymentID,
		To:               action.To,
		RoleName:         action.RoleName,
		UserID:           action.UserID,
		TriggeringUserID: rc.TriggeringUserID,
	})
	if err != nil {
		result.Error = fmt.Sprintf("resolve recipients: %v", err)
		return result
	}
	if len(recipients) == 0 {
		result.Error = "no recipients found"
		return result
	}

	variables := r.notifyVariables(rule, triggerData, state, rc)

	switch action.Channel {
	case hivelab.ChannelEmail:
		sent, err := r.exec.Email.SendEmail(ctx, EmailRequest{
			DeploymentID: rule.DeploymentID,
			TemplateID:   action.TemplateID,
			To:           recipients,
			Subject:      action.Subject,
			Body:         action.Body,
			Variables:    variables,
		})
		return sendOutcome(result, sent, err)

	case hivelab.ChannelPush:
		if r.exec.Push == nil {
			result.Error = "push notifications not configured"
			return result
		}
		sent, err := r.exec.Push.SendPush(ctx, PushRequest{
			DeploymentID: rule.DeploymentID,
			To:           recipients,
			Title:        action.Title,
			Body:         action.Body,
			Link:         action.Link,
			Variables:    variables,
		})
		return sendOutcome(result, sent, err)

	default:
		result.Error = fmt.Sprintf("unsupported notify channel %q", action.Channel)
		return result
	}
}

// sendOutcome converts a sender's result into an action result: success iff
// at least one message went out; partial errors surface in the output.
func sendOutcome(result hivelab.ActionResult, sent SendResult, err error) hivelab.ActionResult {
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if sent.Sent == 0 {
		if len(sent.Errors) > 0 {
			result.Error = sent.Errors[0]
		} else {
			result.Error = "no messages sent"
		}
		return result
	}
	result.Success = true
	result.Output = map[string]any{"sent": sent.Sent}
	if len(sent.Errors) > 0 {
		result.Output["errors"] = sent.Errors
	}
	return result
}

// notifyVariables builds the variable bundle handed to notification
// templates.
func (r *Runner) notifyVariables(rule *hivelab.AutomationRule, triggerData, state map[string]any, rc hivelab.RunContext) map[string]any {
	return map[string]any{
		"deployment_id": rule.DeploymentID,
		"space_id":      rc.SpaceID,
		"trigger":       triggerData,
		"state":         state,
		"user_id":       rc.TriggeringUserID,
		"timestamp":     r.now().Format("2006-01-02 15:04:05"),
	}
}
