package services

import (
	"context"
	"fmt"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

// MembershipResolver resolves notify recipients from a deployment's space
// memberships. It also serves as the email directory for the SMTP sender.
type MembershipResolver struct {
	members repository.MembershipRepository
}

func NewMembershipResolver(members repository.MembershipRepository) *MembershipResolver {
	return &MembershipResolver{members: members}
}

func (r *MembershipResolver) ResolveRecipients(ctx context.Context, q engine.RecipientQuery) ([]string, error) {
	switch q.To {
	case hivelab.RecipientsUser:
		userID := q.UserID
		if userID == "" {
			userID = q.TriggeringUserID
		}
		if userID == "" {
			return nil, nil
		}
		return []string{userID}, nil

	case hivelab.RecipientsRole:
		members, err := r.members.Members(ctx, q.DeploymentID)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, m := range members {
			if m.Role == q.RoleName {
				out = append(out, m.UserID)
			}
		}
		return out, nil

	case hivelab.RecipientsAll:
		members, err := r.members.Members(ctx, q.DeploymentID)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(members))
		for _, m := range members {
			out = append(out, m.UserID)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown recipient kind %q", q.To)
	}
}

// EmailFor implements notify.EmailDirectory over the same membership data.
func (r *MembershipResolver) EmailFor(ctx context.Context, deploymentID, userID string) (string, error) {
	members, err := r.members.Members(ctx, deploymentID)
	if err != nil {
		return "", err
	}
	for _, m := range members {
		if m.UserID == userID {
			if m.Email == "" {
				return "", fmt.Errorf("member %s has no email", userID)
			}
			return m.Email, nil
		}
	}
	return "", fmt.Errorf("user %s is not a member", userID)
}
