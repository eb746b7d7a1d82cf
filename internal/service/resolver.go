package service

import (
	"context"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

// elevatedRoles is the approver set for amount_based steps whose amount
// exceeds the threshold.
var elevatedRoles = []string{"admin", "ceo", "cfo"}

// ResolveApprovers returns the concrete users who must act on a step.
// An empty result means the step requires no human approval (amount_based
// under threshold) and callers must treat it as auto-satisfied. A user-type
// step whose fixed approver does not exist is an error, never a silent
// skip.
func (s *ApprovalService) ResolveApprovers(
	ctx context.Context,
	step repository.StepDefinition,
	tenantID, companyID string,
	metadata map[string]any,
) ([]*repository.User, error) {
	switch step.ApproverType {
	case repository.ApproverTypeUser:
		if step.ApproverID == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step %q has approver type user but no approver id", step.Name)
		}
		user, err := s.directory.FindUserByID(ctx, tenantID, step.ApproverID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, errors.NotFound("approver", step.ApproverID)
		}
		return []*repository.User{user}, nil

	case repository.ApproverTypeRole:
		if step.Role == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step %q has approver type role but no role", step.Name)
		}
		return s.directory.FindUsersByRole(ctx, tenantID, step.Role)

	case repository.ApproverTypeAmountBased:
		if step.AmountThreshold == nil {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step %q has approver type amount_based but no amount threshold", step.Name)
		}
		amount, ok := amountFromMetadata(metadata)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration,
				"amount_based step requires metadata.amount")
		}
		if amount <= *step.AmountThreshold {
			// Under threshold: no human approval required for this step.
			return nil, nil
		}
		return s.findElevatedApprovers(ctx, tenantID)

	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"unknown approver type %q", step.ApproverType)
	}
}

// findElevatedApprovers returns the union of users holding any elevated
// role, deduplicated by user id.
func (s *ApprovalService) findElevatedApprovers(ctx context.Context, tenantID string) ([]*repository.User, error) {
	seen := make(map[string]struct{})
	var approvers []*repository.User
	for _, role := range elevatedRoles {
		users, err := s.directory.FindUsersByRole(ctx, tenantID, role)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			approvers = append(approvers, u)
		}
	}
	return approvers, nil
}

func amountFromMetadata(metadata map[string]any) (float64, bool) {
	if metadata == nil {
		return 0, false
	}
	return asNumber(metadata["amount"])
}
