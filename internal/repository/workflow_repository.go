package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
)

// CreateWorkflow inserts a workflow definition. Steps, conditions and
// escalation rules are stored as JSONB and round-trip through the typed
// structs.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, wf *WorkflowDefinition) error {
	stepsJSON, err := json.Marshal(wf.Steps)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal workflow steps")
	}
	conditionsJSON, err := json.Marshal(wf.Conditions)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal workflow conditions")
	}
	rulesJSON, err := json.Marshal(wf.EscalationRules)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal escalation rules")
	}

	query := `
		INSERT INTO approval_workflows
		    (id, tenant_id, company_id, name,
		     entity_type, entity_sub_type, version,
		     is_active, auto_approval, priority,
		     steps, conditions, escalation_rules)
		VALUES ($1, $2, $3, $4,
		        $5, $6, $7,
		        $8, $9, $10,
		        $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err = s.q.QueryRow(ctx, query,
		wf.ID,
		wf.TenantID,
		wf.CompanyID,
		wf.Name,
		wf.EntityType,
		wf.EntitySubType,
		wf.Version,
		wf.IsActive,
		wf.AutoApproval,
		wf.Priority,
		stepsJSON,
		conditionsJSON,
		rulesJSON,
	).Scan(&wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create workflow")
	}
	return nil
}

// GetWorkflowByID retrieves a workflow scoped to a tenant.
func (s *PostgresStore) GetWorkflowByID(ctx context.Context, tenantID, workflowID string) (*WorkflowDefinition, error) {
	query := `
		SELECT id, tenant_id, company_id, name,
		       entity_type, entity_sub_type, version,
		       is_active, auto_approval, priority,
		       steps, conditions, escalation_rules,
		       created_at, updated_at
		FROM approval_workflows
		WHERE id = $1 AND tenant_id = $2
	`

	wf, err := s.scanWorkflow(s.q.QueryRow(ctx, query, workflowID, tenantID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow", workflowID)
	}
	return wf, err
}

// FindWorkflows returns active workflows applicable to an entity type and
// sub-type. A workflow with no sub-type matches any request sub-type.
// Ordering is the selection tie-break: priority DESC, created_at ASC.
func (s *PostgresStore) FindWorkflows(ctx context.Context, tenantID, companyID, entityType string, entitySubType *string) ([]*WorkflowDefinition, error) {
	query := `
		SELECT id, tenant_id, company_id, name,
		       entity_type, entity_sub_type, version,
		       is_active, auto_approval, priority,
		       steps, conditions, escalation_rules,
		       created_at, updated_at
		FROM approval_workflows
		WHERE tenant_id = $1
		  AND company_id = $2
		  AND entity_type = $3
		  AND is_active = TRUE
		  AND (entity_sub_type IS NULL OR entity_sub_type = $4)
		ORDER BY priority DESC, created_at ASC
	`

	rows, err := s.q.Query(ctx, query, tenantID, companyID, entityType, entitySubType)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find workflows")
	}
	defer rows.Close()

	var workflows []*WorkflowDefinition
	for rows.Next() {
		wf, err := s.scanWorkflow(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow")
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanWorkflow(row rowScanner) (*WorkflowDefinition, error) {
	wf := &WorkflowDefinition{}
	var stepsJSON, conditionsJSON, rulesJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.TenantID,
		&wf.CompanyID,
		&wf.Name,
		&wf.EntityType,
		&wf.EntitySubType,
		&wf.Version,
		&wf.IsActive,
		&wf.AutoApproval,
		&wf.Priority,
		&stepsJSON,
		&conditionsJSON,
		&rulesJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stepsJSON, &wf.Steps); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal workflow steps")
	}
	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &wf.Conditions); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal workflow conditions")
		}
	}
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &wf.EscalationRules); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal escalation rules")
		}
	}
	return wf, nil
}
