package service

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

// CreateWorkflow validates and persists a workflow definition. Step order
// must be strictly increasing starting at 1; steps are never reordered once
// a request references the workflow.
func (s *ApprovalService) CreateWorkflow(ctx context.Context, wf *repository.WorkflowDefinition) (*repository.WorkflowDefinition, error) {
	if wf.TenantID == "" {
		return nil, errors.InvalidInput("tenant_id", "tenant id is required")
	}
	if wf.CompanyID == "" {
		return nil, errors.InvalidInput("company_id", "company id is required")
	}
	if wf.EntityType == "" {
		return nil, errors.InvalidInput("entity_type", "entity type is required")
	}
	if wf.Name == "" {
		return nil, errors.InvalidInput("name", "workflow name is required")
	}

	if len(wf.Steps) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"workflow requires at least one step")
	}

	sort.SliceStable(wf.Steps, func(i, j int) bool {
		return wf.Steps[i].Order < wf.Steps[j].Order
	})
	if wf.Steps[0].Order != 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"step order must start at 1")
	}
	for i := range wf.Steps {
		if i > 0 && wf.Steps[i].Order <= wf.Steps[i-1].Order {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step order must be strictly increasing (duplicate order %d)", wf.Steps[i].Order)
		}
		if err := validateStep(&wf.Steps[i]); err != nil {
			return nil, err
		}
	}

	for _, c := range wf.Conditions {
		if c.Field == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration,
				"condition field is required")
		}
		if _, ok := validOperators[c.Operator]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"unknown condition operator %q", c.Operator)
		}
	}

	wf.ID = uuid.NewString()
	if wf.Version == 0 {
		wf.Version = 1
	}
	wf.IsActive = true

	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("workflow_id", wf.ID).
		Str("tenant_id", wf.TenantID).
		Str("entity_type", wf.EntityType).
		Int("steps", len(wf.Steps)).
		Msg("Workflow created")

	return wf, nil
}

func validateStep(step *repository.StepDefinition) error {
	if step.Name == "" {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"step %d has no name", step.Order)
	}
	switch step.ApproverType {
	case repository.ApproverTypeUser:
		if step.ApproverID == "" {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step %q requires an approver id", step.Name)
		}
	case repository.ApproverTypeRole:
		if step.Role == "" {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step %q requires a role", step.Name)
		}
	case repository.ApproverTypeAmountBased:
		if step.AmountThreshold == nil {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"step %q requires an amount threshold", step.Name)
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"step %q has unknown approver type %q", step.Name, step.ApproverType)
	}
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	return nil
}

// GetWorkflows returns the active workflows applicable to an entity type
// and sub-type, in selection order (priority DESC, created_at ASC). When an
// entity id or metadata is supplied, workflows whose entry conditions do
// not hold for them are filtered out, so a caller can preview the exact
// workflow a request for that entity would select.
func (s *ApprovalService) GetWorkflows(
	ctx context.Context,
	tenantID, companyID, entityType, entityID string,
	entitySubType *string,
	metadata map[string]any,
) ([]*repository.WorkflowDefinition, error) {
	if tenantID == "" {
		return nil, errors.InvalidInput("tenant_id", "tenant id is required")
	}
	if entityType == "" {
		return nil, errors.InvalidInput("entity_type", "entity type is required")
	}

	workflows, err := s.store.FindWorkflows(ctx, tenantID, companyID, entityType, entitySubType)
	if err != nil {
		return nil, err
	}
	if entityID == "" && metadata == nil {
		return workflows, nil
	}

	matching := make([]*repository.WorkflowDefinition, 0, len(workflows))
	for _, wf := range workflows {
		ok, err := s.evalConditions(wf.Conditions, entityType, entityID, metadata)
		if err != nil {
			return nil, err
		}
		if ok {
			matching = append(matching, wf)
		}
	}
	return matching, nil
}
