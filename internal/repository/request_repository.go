package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
)

// CreateRequest inserts a request and its initial assignees in one
// transaction.
func (s *PostgresStore) CreateRequest(ctx context.Context, req *ApprovalRequest, assignees []*ApprovalAssignee) error {
	return s.InTransaction(ctx, func(st Store) error {
		ps := st.(*PostgresStore)

		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request metadata")
		}

		query := `
			INSERT INTO approval_requests
			    (id, tenant_id, company_id, workflow_id,
			     entity_type, entity_id, entity_sub_type,
			     status, current_step, total_steps, completed_steps,
			     requested_by, requested_at, approved_at, rejected_at,
			     comments, metadata)
			VALUES ($1, $2, $3, $4,
			        $5, $6, $7,
			        $8::approval_request_status, $9, $10, $11,
			        $12, $13, $14, $15,
			        $16, $17)
			RETURNING created_at, updated_at
		`

		err = ps.q.QueryRow(ctx, query,
			req.ID,
			req.TenantID,
			req.CompanyID,
			req.WorkflowID,
			req.EntityType,
			req.EntityID,
			req.EntitySubType,
			req.Status,
			req.CurrentStep,
			req.TotalSteps,
			req.CompletedSteps,
			req.RequestedBy,
			req.RequestedAt,
			req.ApprovedAt,
			req.RejectedAt,
			req.Comments,
			metadataJSON,
		).Scan(&req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval request")
		}

		return ps.CreateAssignees(ctx, assignees)
	})
}

// GetRequest retrieves a request scoped to a tenant.
func (s *PostgresStore) GetRequest(ctx context.Context, tenantID, requestID string) (*ApprovalRequest, error) {
	return s.getRequest(ctx, tenantID, requestID, false)
}

// GetRequestForUpdate retrieves a request with a row lock, serializing
// concurrent actions on the same request. Must run inside InTransaction.
func (s *PostgresStore) GetRequestForUpdate(ctx context.Context, tenantID, requestID string) (*ApprovalRequest, error) {
	return s.getRequest(ctx, tenantID, requestID, true)
}

func (s *PostgresStore) getRequest(ctx context.Context, tenantID, requestID string, forUpdate bool) (*ApprovalRequest, error) {
	query := `
		SELECT id, tenant_id, company_id, workflow_id,
		       entity_type, entity_id, entity_sub_type,
		       status, current_step, total_steps, completed_steps,
		       requested_by, requested_at, approved_at, rejected_at,
		       comments, metadata,
		       created_at, updated_at
		FROM approval_requests
		WHERE id = $1 AND tenant_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	req, err := s.scanRequest(s.q.QueryRow(ctx, query, requestID, tenantID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("approval_request", requestID)
	}
	return req, err
}

// UpdateRequest persists the mutable request fields.
func (s *PostgresStore) UpdateRequest(ctx context.Context, req *ApprovalRequest) error {
	query := `
		UPDATE approval_requests
		SET status          = $3::approval_request_status,
		    current_step    = $4,
		    completed_steps = $5,
		    approved_at     = $6,
		    rejected_at     = $7,
		    updated_at      = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at
	`

	err := s.q.QueryRow(ctx, query,
		req.ID,
		req.TenantID,
		req.Status,
		req.CurrentStep,
		req.CompletedSteps,
		req.ApprovedAt,
		req.RejectedAt,
	).Scan(&req.UpdatedAt)
	if err == pgx.ErrNoRows {
		return errors.NotFound("approval_request", req.ID)
	}
	return err
}

// GetAssignee retrieves one assignee scoped to its request.
func (s *PostgresStore) GetAssignee(ctx context.Context, requestID, assigneeID string) (*ApprovalAssignee, error) {
	query := `
		SELECT id, approval_request_id, user_id, step_id, step_name,
		       status, assigned_at, completed_at,
		       comments, escalated_to, escalation_reason
		FROM approval_assignees
		WHERE id = $1 AND approval_request_id = $2
	`

	a, err := s.scanAssignee(s.q.QueryRow(ctx, query, assigneeID, requestID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("assignee", assigneeID)
	}
	return a, err
}

// ListAssignees returns all assignees for a request, oldest first.
func (s *PostgresStore) ListAssignees(ctx context.Context, requestID string) ([]*ApprovalAssignee, error) {
	query := `
		SELECT id, approval_request_id, user_id, step_id, step_name,
		       status, assigned_at, completed_at,
		       comments, escalated_to, escalation_reason
		FROM approval_assignees
		WHERE approval_request_id = $1
		ORDER BY assigned_at ASC, id ASC
	`

	rows, err := s.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list assignees")
	}
	defer rows.Close()

	return s.scanAssigneeRows(rows)
}

// CreateAssignees inserts a batch of assignee rows. The unique constraint on
// (approval_request_id, step_id, user_id) prevents duplicate assignment
// within a step.
func (s *PostgresStore) CreateAssignees(ctx context.Context, assignees []*ApprovalAssignee) error {
	query := `
		INSERT INTO approval_assignees
		    (id, approval_request_id, user_id, step_id, step_name,
		     status, assigned_at)
		VALUES ($1, $2, $3, $4, $5,
		        $6::approval_assignee_status, $7)
	`

	for _, a := range assignees {
		if _, err := s.q.Exec(ctx, query,
			a.ID,
			a.ApprovalRequestID,
			a.UserID,
			a.StepID,
			a.StepName,
			a.Status,
			a.AssignedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create assignee")
		}
	}
	return nil
}

// UpdateAssignee records the outcome of an approval action on one assignee.
func (s *PostgresStore) UpdateAssignee(ctx context.Context, a *ApprovalAssignee) error {
	query := `
		UPDATE approval_assignees
		SET status            = $2::approval_assignee_status,
		    completed_at      = $3,
		    comments          = $4,
		    escalated_to      = $5,
		    escalation_reason = $6
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := s.q.QueryRow(ctx, query,
		a.ID,
		a.Status,
		a.CompletedAt,
		a.Comments,
		a.EscalatedTo,
		a.EscalationReason,
	).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("assignee", a.ID)
	}
	return err
}

// ListPendingAssigneesForUser returns all assignee rows awaiting action from
// a user across the tenant's pending requests.
func (s *PostgresStore) ListPendingAssigneesForUser(ctx context.Context, tenantID, userID string) ([]*ApprovalAssignee, error) {
	query := `
		SELECT a.id, a.approval_request_id, a.user_id, a.step_id, a.step_name,
		       a.status, a.assigned_at, a.completed_at,
		       a.comments, a.escalated_to, a.escalation_reason
		FROM approval_assignees a
		JOIN approval_requests r ON r.id = a.approval_request_id
		WHERE r.tenant_id = $1
		  AND a.user_id = $2
		  AND a.status = 'pending'
		  AND r.status = 'pending'
		ORDER BY a.assigned_at ASC
	`

	rows, err := s.q.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list pending assignees")
	}
	defer rows.Close()

	return s.scanAssigneeRows(rows)
}

// ── scan helpers ─────────────────────────────────────────────────────────────

func (s *PostgresStore) scanRequest(row rowScanner) (*ApprovalRequest, error) {
	req := &ApprovalRequest{}
	var metadataJSON []byte

	err := row.Scan(
		&req.ID,
		&req.TenantID,
		&req.CompanyID,
		&req.WorkflowID,
		&req.EntityType,
		&req.EntityID,
		&req.EntitySubType,
		&req.Status,
		&req.CurrentStep,
		&req.TotalSteps,
		&req.CompletedSteps,
		&req.RequestedBy,
		&req.RequestedAt,
		&req.ApprovedAt,
		&req.RejectedAt,
		&req.Comments,
		&metadataJSON,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &req.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal request metadata")
		}
	}
	return req, nil
}

func (s *PostgresStore) scanAssignee(row rowScanner) (*ApprovalAssignee, error) {
	a := &ApprovalAssignee{}
	err := row.Scan(
		&a.ID,
		&a.ApprovalRequestID,
		&a.UserID,
		&a.StepID,
		&a.StepName,
		&a.Status,
		&a.AssignedAt,
		&a.CompletedAt,
		&a.Comments,
		&a.EscalatedTo,
		&a.EscalationReason,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) scanAssigneeRows(rows pgx.Rows) ([]*ApprovalAssignee, error) {
	var assignees []*ApprovalAssignee
	for rows.Next() {
		a, err := s.scanAssignee(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan assignee")
		}
		assignees = append(assignees, a)
	}
	return assignees, nil
}
