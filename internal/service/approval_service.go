package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

// CreateApprovalRequestInput binds one business entity to an approval run.
type CreateApprovalRequestInput struct {
	TenantID      string         `json:"tenant_id"`
	CompanyID     string         `json:"company_id"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	EntitySubType *string        `json:"entity_sub_type,omitempty"`
	RequestedBy   string         `json:"requested_by"`
	Comments      *string        `json:"comments,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ProcessApprovalActionInput records one reviewer's decision on their
// assignee record.
type ProcessApprovalActionInput struct {
	TenantID          string                    `json:"tenant_id"`
	ApprovalRequestID string                    `json:"approval_request_id"`
	AssigneeID        string                    `json:"assignee_id"`
	Action            repository.ApprovalAction `json:"action"`
	Comments          *string                   `json:"comments,omitempty"`
	EscalationReason  *string                   `json:"escalation_reason,omitempty"`
}

// ── Request creation ─────────────────────────────────────────────────────────

// CreateApprovalRequest selects the applicable workflow, evaluates its entry
// conditions and creates a request with the first actionable step assigned.
// Steps that resolve to zero approvers are auto-satisfied and skipped; a
// request whose steps all resolve empty (or whose workflow is flagged
// auto-approval) is created terminal approved.
func (s *ApprovalService) CreateApprovalRequest(ctx context.Context, in *CreateApprovalRequestInput) (*ApprovalRequestView, error) {
	if err := validateCreateRequest(in); err != nil {
		return nil, err
	}

	workflows, err := s.store.FindWorkflows(ctx, in.TenantID, in.CompanyID, in.EntityType, in.EntitySubType)
	if err != nil {
		return nil, err
	}
	if len(workflows) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoWorkflowFound,
			"no active workflow for entity type %q", in.EntityType)
	}
	// Highest priority first; created_at breaks ties.
	wf := workflows[0]

	met, err := s.evalConditions(wf.Conditions, in.EntityType, in.EntityID, in.Metadata)
	if err != nil {
		return nil, err
	}
	if !met {
		return nil, errors.Newf(errors.ErrCodeConditionsNotMet,
			"workflow %q conditions not met", wf.Name)
	}

	now := s.now()
	req := &repository.ApprovalRequest{
		ID:            uuid.NewString(),
		TenantID:      in.TenantID,
		CompanyID:     in.CompanyID,
		WorkflowID:    wf.ID,
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		EntitySubType: in.EntitySubType,
		Status:        repository.RequestStatusPending,
		CurrentStep:   1,
		TotalSteps:    len(wf.Steps),
		RequestedBy:   in.RequestedBy,
		RequestedAt:   now,
		Comments:      in.Comments,
		Metadata:      in.Metadata,
	}

	var assignees []*repository.ApprovalAssignee
	if wf.AutoApproval {
		req.Status = repository.RequestStatusApproved
		req.CurrentStep = req.TotalSteps
		req.CompletedSteps = req.TotalSteps
		req.ApprovedAt = &now
	} else {
		assignees, err = s.activateFrom(ctx, wf, req, 1, now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateRequest(ctx, req, assignees); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("approval_request_id", req.ID).
		Str("workflow_id", wf.ID).
		Str("entity_type", req.EntityType).
		Str("entity_id", req.EntityID).
		Str("status", string(req.Status)).
		Int("total_steps", req.TotalSteps).
		Int("assignees", len(assignees)).
		Msg("Approval request created")

	auditAction := "request_submitted"
	if req.Status == repository.RequestStatusApproved {
		auditAction = "auto_approved"
	}
	s.appendAudit(ctx, &repository.AuditEntry{
		ApprovalRequestID: req.ID,
		TenantID:          req.TenantID,
		Action:            auditAction,
		PerformedBy:       req.RequestedBy,
		Metadata: map[string]any{
			"workflow_id":  wf.ID,
			"current_step": req.CurrentStep,
		},
	})

	// Side effects after commit: failures are logged, never propagated.
	if req.Status == repository.RequestStatusApproved {
		s.updateEntityStatus(ctx, req, VerdictApproved)
	}
	if len(assignees) > 0 {
		s.notifier.NotifyAssignees(ctx, req, assignees)
	}

	return &ApprovalRequestView{Request: req, Assignees: assignees}, nil
}

func validateCreateRequest(in *CreateApprovalRequestInput) error {
	switch {
	case in.TenantID == "":
		return errors.InvalidInput("tenant_id", "tenant id is required")
	case in.CompanyID == "":
		return errors.InvalidInput("company_id", "company id is required")
	case in.EntityType == "":
		return errors.InvalidInput("entity_type", "entity type is required")
	case in.EntityID == "":
		return errors.InvalidInput("entity_id", "entity id is required")
	case in.RequestedBy == "":
		return errors.InvalidInput("requested_by", "requested_by is required")
	}
	return nil
}

// ── Action processing ────────────────────────────────────────────────────────

// ProcessApprovalAction applies one assignee's decision and recomputes the
// request state. All mutations for one action commit in a single
// transaction; the row lock on the request serializes concurrent actions so
// only one can take the terminal transition.
func (s *ApprovalService) ProcessApprovalAction(ctx context.Context, in *ProcessApprovalActionInput) (*ApprovalRequestView, error) {
	switch in.Action {
	case repository.ActionApprove, repository.ActionReject, repository.ActionEscalate:
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "unknown action %q", in.Action)
	}

	var (
		req          *repository.ApprovalRequest
		assignee     *repository.ApprovalAssignee
		newAssignees []*repository.ApprovalAssignee
		verdict      *Verdict
	)

	err := s.store.InTransaction(ctx, func(tx repository.Store) error {
		r, err := tx.GetRequestForUpdate(ctx, in.TenantID, in.ApprovalRequestID)
		if err != nil {
			return err
		}
		a, err := tx.GetAssignee(ctx, in.ApprovalRequestID, in.AssigneeID)
		if err != nil {
			return err
		}
		if a.Status != repository.AssigneeStatusPending {
			return errors.Newf(errors.ErrCodeAlreadyProcessed,
				"assignee already processed (status: %s)", a.Status)
		}
		if r.Status != repository.RequestStatusPending {
			return errors.Newf(errors.ErrCodeAlreadyProcessed,
				"approval request already %s", r.Status)
		}

		wf, err := tx.GetWorkflowByID(ctx, in.TenantID, r.WorkflowID)
		if err != nil {
			return err
		}

		now := s.now()
		a.CompletedAt = &now
		a.Comments = in.Comments

		switch in.Action {
		case repository.ActionReject:
			a.Status = repository.AssigneeStatusRejected
			if err := tx.UpdateAssignee(ctx, a); err != nil {
				return err
			}
			r.Status = repository.RequestStatusRejected
			r.RejectedAt = &now
			v := VerdictRejected
			verdict = &v

		case repository.ActionEscalate:
			a.Status = repository.AssigneeStatusEscalated
			a.EscalationReason = in.EscalationReason
			if target := escalationTarget(wf); target != "" {
				a.EscalatedTo = &target
			}
			if err := tx.UpdateAssignee(ctx, a); err != nil {
				return err
			}

		case repository.ActionApprove:
			a.Status = repository.AssigneeStatusApproved
			if err := tx.UpdateAssignee(ctx, a); err != nil {
				return err
			}
			all, err := tx.ListAssignees(ctx, r.ID)
			if err != nil {
				return err
			}
			if stepComplete(all, a.StepID) {
				r.CompletedSteps++
				newAssignees, err = s.activateFromTx(ctx, tx, wf, r, r.CurrentStep+1, now)
				if err != nil {
					return err
				}
				if r.Status == repository.RequestStatusApproved {
					v := VerdictApproved
					verdict = &v
				}
			}
		}

		if err := tx.UpdateRequest(ctx, r); err != nil {
			return err
		}
		req = r
		assignee = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("approval_request_id", req.ID).
		Str("assignee_id", assignee.ID).
		Str("action", string(in.Action)).
		Str("status", string(req.Status)).
		Int("current_step", req.CurrentStep).
		Int("completed_steps", req.CompletedSteps).
		Msg("Approval action processed")

	s.appendAudit(ctx, &repository.AuditEntry{
		ApprovalRequestID: req.ID,
		AssigneeID:        &assignee.ID,
		TenantID:          req.TenantID,
		Action:            string(assignee.Status),
		PerformedBy:       assignee.UserID,
		Metadata: map[string]any{
			"step_id":   assignee.StepID,
			"step_name": assignee.StepName,
		},
	})

	// Exactly one terminal transition per request; the updater runs once,
	// after the transition has committed.
	if verdict != nil {
		s.updateEntityStatus(ctx, req, *verdict)
	}
	s.notifier.NotifyAction(ctx, req, assignee, in.Action, in.Comments)
	if len(newAssignees) > 0 {
		s.notifier.NotifyAssignees(ctx, req, newAssignees)
	}

	all, err := s.store.ListAssignees(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &ApprovalRequestView{Request: req, Assignees: all}, nil
}

// stepComplete reports whether the step is done: every assignee has acted,
// none rejected, and at least one approved. Completion is tracked per step,
// never as a request-wide tally, so multi-assignee steps require all of
// their reviewers. An escalated assignee neither satisfies nor blocks the
// step; the remaining reviewers carry it.
func stepComplete(assignees []*repository.ApprovalAssignee, stepID string) bool {
	approved := false
	for _, a := range assignees {
		if a.StepID != stepID {
			continue
		}
		switch a.Status {
		case repository.AssigneeStatusApproved:
			approved = true
		case repository.AssigneeStatusEscalated:
		default:
			return false
		}
	}
	return approved
}

// escalationTarget returns the target of the first escalation rule matching
// a manual escalation. A rule with an empty trigger matches any.
func escalationTarget(wf *repository.WorkflowDefinition) string {
	for _, rule := range wf.EscalationRules {
		if rule.Trigger == "" || rule.Trigger == "manual" {
			return rule.Target
		}
	}
	return ""
}

// activateFrom resolves approvers for steps starting at the given 1-based
// position, skipping steps that resolve empty. It returns the assignee rows
// for the first actionable step, or nil after marking the request approved
// when every remaining step auto-satisfies.
func (s *ApprovalService) activateFrom(
	ctx context.Context,
	wf *repository.WorkflowDefinition,
	req *repository.ApprovalRequest,
	from int,
	now time.Time,
) ([]*repository.ApprovalAssignee, error) {
	for step := from; step <= req.TotalSteps; step++ {
		def := wf.Steps[step-1]
		approvers, err := s.ResolveApprovers(ctx, def, req.TenantID, req.CompanyID, req.Metadata)
		if err != nil {
			return nil, err
		}
		if len(approvers) == 0 {
			// Step requires no human approval at this amount; auto-satisfied.
			req.CompletedSteps++
			continue
		}

		req.CurrentStep = step
		assignees := make([]*repository.ApprovalAssignee, 0, len(approvers))
		for _, u := range approvers {
			assignees = append(assignees, &repository.ApprovalAssignee{
				ID:                uuid.NewString(),
				ApprovalRequestID: req.ID,
				UserID:            u.ID,
				StepID:            def.ID,
				StepName:          def.Name,
				Status:            repository.AssigneeStatusPending,
				AssignedAt:        now,
			})
		}
		return assignees, nil
	}

	// Every remaining step auto-satisfied: terminal.
	req.CurrentStep = req.TotalSteps
	req.Status = repository.RequestStatusApproved
	req.ApprovedAt = &now
	return nil, nil
}

// activateFromTx is activateFrom plus persistence of the new assignee rows
// within the caller's transaction.
func (s *ApprovalService) activateFromTx(
	ctx context.Context,
	tx repository.Store,
	wf *repository.WorkflowDefinition,
	req *repository.ApprovalRequest,
	from int,
	now time.Time,
) ([]*repository.ApprovalAssignee, error) {
	assignees, err := s.activateFrom(ctx, wf, req, from, now)
	if err != nil {
		return nil, err
	}
	if len(assignees) > 0 {
		if err := tx.CreateAssignees(ctx, assignees); err != nil {
			return nil, err
		}
	}
	return assignees, nil
}

func (s *ApprovalService) updateEntityStatus(ctx context.Context, req *repository.ApprovalRequest, verdict Verdict) {
	if err := s.entityStatus.Update(ctx, req.EntityType, req.TenantID, req.EntityID, verdict); err != nil {
		s.log.Error().Err(err).
			Str("approval_request_id", req.ID).
			Str("entity_type", req.EntityType).
			Str("entity_id", req.EntityID).
			Str("verdict", string(verdict)).
			Msg("Failed to update entity status")
	}
}

// ── Query helpers ────────────────────────────────────────────────────────────

// GetApprovalRequest returns a request with all its assignees.
func (s *ApprovalService) GetApprovalRequest(ctx context.Context, tenantID, requestID string) (*ApprovalRequestView, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	assignees, err := s.store.ListAssignees(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &ApprovalRequestView{Request: req, Assignees: assignees}, nil
}

// GetPendingApprovals returns all assignee rows awaiting action from a user.
func (s *ApprovalService) GetPendingApprovals(ctx context.Context, tenantID, userID string) ([]*repository.ApprovalAssignee, error) {
	return s.store.ListPendingAssigneesForUser(ctx, tenantID, userID)
}

// GetApprovalHistory returns the audit trail for a request.
func (s *ApprovalService) GetApprovalHistory(ctx context.Context, tenantID, requestID string) ([]*repository.AuditEntry, error) {
	if _, err := s.store.GetRequest(ctx, tenantID, requestID); err != nil {
		return nil, err
	}
	return s.store.ListAuditByRequest(ctx, requestID)
}
