package repository

import (
	"context"
	"time"
)

// ── Domain types for the unified approval engine ─────────────────────────────

// ApproverType selects how a step's approvers are resolved.
type ApproverType string

const (
	ApproverTypeUser        ApproverType = "user"
	ApproverTypeRole        ApproverType = "role"
	ApproverTypeAmountBased ApproverType = "amount_based"
)

// RequestStatus is the aggregate status of an approval request.
// approved and rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// AssigneeStatus is the status of one user's participation in one step.
// Any status other than pending is final for that assignee.
type AssigneeStatus string

const (
	AssigneeStatusPending   AssigneeStatus = "pending"
	AssigneeStatusApproved  AssigneeStatus = "approved"
	AssigneeStatusRejected  AssigneeStatus = "rejected"
	AssigneeStatusEscalated AssigneeStatus = "escalated"
)

// ApprovalAction is an action a reviewer takes on their assignee record.
type ApprovalAction string

const (
	ActionApprove  ApprovalAction = "approve"
	ActionReject   ApprovalAction = "reject"
	ActionEscalate ApprovalAction = "escalate"
)

// StepDefinition is one entry in a workflow's steps JSONB array.
// Order is 1-based and fixed at creation.
type StepDefinition struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Order           int          `json:"order"`
	ApproverType    ApproverType `json:"approver_type"`
	ApproverID      string       `json:"approver_id,omitempty"`      // user type
	Role            string       `json:"role,omitempty"`             // role type
	AmountThreshold *float64     `json:"amount_threshold,omitempty"` // amount_based type
}

// Condition is one entry in a workflow's conditions JSONB array, evaluated
// against request metadata at creation time.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"` // eq | ne | gt | gte | lt | lte
	Value    any    `json:"value"`
}

// EscalationRule maps an escalation trigger to a target approver.
type EscalationRule struct {
	Trigger string `json:"trigger"` // empty matches any trigger
	Target  string `json:"target"`
}

// WorkflowDefinition is a named, versioned approval workflow template.
// Steps, conditions and escalation rules are immutable once any request
// references the workflow.
type WorkflowDefinition struct {
	ID              string           `json:"id"`
	TenantID        string           `json:"tenant_id"`
	CompanyID       string           `json:"company_id"`
	Name            string           `json:"name"`
	EntityType      string           `json:"entity_type"` // journal_entry | invoice | purchase_order | ...
	EntitySubType   *string          `json:"entity_sub_type,omitempty"`
	Version         int              `json:"version"`
	IsActive        bool             `json:"is_active"`
	AutoApproval    bool             `json:"auto_approval"`
	Priority        int              `json:"priority"` // higher wins; created_at ASC breaks ties
	Steps           []StepDefinition `json:"steps"`
	Conditions      []Condition      `json:"conditions,omitempty"`
	EscalationRules []EscalationRule `json:"escalation_rules,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ApprovalRequest is one in-flight or completed run of a workflow against a
// business entity. TotalSteps snapshots the workflow's step count at
// creation and never changes.
type ApprovalRequest struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	CompanyID      string         `json:"company_id"`
	WorkflowID     string         `json:"workflow_id"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	EntitySubType  *string        `json:"entity_sub_type,omitempty"`
	Status         RequestStatus  `json:"status"`
	CurrentStep    int            `json:"current_step"` // 1-based
	TotalSteps     int            `json:"total_steps"`
	CompletedSteps int            `json:"completed_steps"`
	RequestedBy    string         `json:"requested_by"`
	RequestedAt    time.Time      `json:"requested_at"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	RejectedAt     *time.Time     `json:"rejected_at,omitempty"`
	Comments       *string        `json:"comments,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ApprovalAssignee is one (request, step, user) row. Its status moves away
// from pending at most once.
type ApprovalAssignee struct {
	ID                string         `json:"id"`
	ApprovalRequestID string         `json:"approval_request_id"`
	UserID            string         `json:"user_id"`
	StepID            string         `json:"step_id"`
	StepName          string         `json:"step_name"`
	Status            AssigneeStatus `json:"status"`
	AssignedAt        time.Time      `json:"assigned_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	Comments          *string        `json:"comments,omitempty"`
	EscalatedTo       *string        `json:"escalated_to,omitempty"`
	EscalationReason  *string        `json:"escalation_reason,omitempty"`
}

// User is a directory entry used for approver resolution.
type User struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// AuditEntry is one immutable record in the approval audit log.
type AuditEntry struct {
	ID                string         `json:"id"`
	ApprovalRequestID string         `json:"approval_request_id"`
	AssigneeID        *string        `json:"assignee_id,omitempty"`
	TenantID          string         `json:"tenant_id"`
	Action            string         `json:"action"` // request_submitted | approved | rejected | escalated | auto_approved
	PerformedBy       string         `json:"performed_by"`
	PerformedAt       time.Time      `json:"performed_at"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// ── Store contract ───────────────────────────────────────────────────────────

// Store is the persistence surface the approval engine runs against.
// InTransaction hands the callback a transaction-scoped Store; for a given
// request id, GetRequestForUpdate serializes concurrent transactions so at
// most one action commits a state transition at a time.
type Store interface {
	CreateWorkflow(ctx context.Context, wf *WorkflowDefinition) error
	GetWorkflowByID(ctx context.Context, tenantID, workflowID string) (*WorkflowDefinition, error)
	// FindWorkflows returns active workflows matching the entity type and
	// sub-type (a workflow with no sub-type matches any), ordered by
	// priority DESC, created_at ASC.
	FindWorkflows(ctx context.Context, tenantID, companyID, entityType string, entitySubType *string) ([]*WorkflowDefinition, error)

	CreateRequest(ctx context.Context, req *ApprovalRequest, assignees []*ApprovalAssignee) error
	GetRequest(ctx context.Context, tenantID, requestID string) (*ApprovalRequest, error)
	GetRequestForUpdate(ctx context.Context, tenantID, requestID string) (*ApprovalRequest, error)
	UpdateRequest(ctx context.Context, req *ApprovalRequest) error

	GetAssignee(ctx context.Context, requestID, assigneeID string) (*ApprovalAssignee, error)
	ListAssignees(ctx context.Context, requestID string) ([]*ApprovalAssignee, error)
	CreateAssignees(ctx context.Context, assignees []*ApprovalAssignee) error
	UpdateAssignee(ctx context.Context, assignee *ApprovalAssignee) error
	ListPendingAssigneesForUser(ctx context.Context, tenantID, userID string) ([]*ApprovalAssignee, error)

	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAuditByRequest(ctx context.Context, requestID string) ([]*AuditEntry, error)

	InTransaction(ctx context.Context, fn func(Store) error) error
}
