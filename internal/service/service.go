// Package service implements the unified approval engine: workflow
// definitions, approval requests and the step state machine that drives
// them.
package service

import (
	"context"
	"time"

	"github.com/pesio-ai/be-plt-approvals/internal/logger"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

// UserDirectory resolves user information for approver assignment.
type UserDirectory interface {
	// FindUserByID returns the user with the given id, or nil when absent.
	FindUserByID(ctx context.Context, tenantID, userID string) (*repository.User, error)
	// FindUsersByRole returns all users in the tenant holding the role.
	FindUsersByRole(ctx context.Context, tenantID, role string) ([]*repository.User, error)
}

// Notifier is informed on request creation and on each processed action.
// Implementations are fire-and-forget; the engine never consumes a result.
type Notifier interface {
	NotifyAssignees(ctx context.Context, req *repository.ApprovalRequest, assignees []*repository.ApprovalAssignee)
	NotifyAction(ctx context.Context, req *repository.ApprovalRequest, assignee *repository.ApprovalAssignee, action repository.ApprovalAction, comments *string)
}

// ConditionEvaluator decides whether a workflow's entry conditions hold for
// an entity and its metadata. Request creation fails closed on false.
type ConditionEvaluator func(conditions []repository.Condition, entityType, entityID string, metadata map[string]any) (bool, error)

// ApprovalRequestView is the full request state returned by engine
// operations.
type ApprovalRequestView struct {
	Request   *repository.ApprovalRequest    `json:"request"`
	Assignees []*repository.ApprovalAssignee `json:"assignees"`
}

// ApprovalService is the stateless engine; all state lives in the store.
type ApprovalService struct {
	store          repository.Store
	directory      UserDirectory
	notifier       Notifier
	entityStatus   *EntityStatusRegistry
	evalConditions ConditionEvaluator
	now            func() time.Time
	log            *logger.Logger
}

// Option customizes an ApprovalService.
type Option func(*ApprovalService)

// WithConditionEvaluator replaces the default condition evaluator.
func WithConditionEvaluator(eval ConditionEvaluator) Option {
	return func(s *ApprovalService) { s.evalConditions = eval }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ApprovalService) { s.now = now }
}

// NewApprovalService creates the engine with its store and collaborators.
func NewApprovalService(
	store repository.Store,
	directory UserDirectory,
	notifier Notifier,
	entityStatus *EntityStatusRegistry,
	log *logger.Logger,
	opts ...Option,
) *ApprovalService {
	s := &ApprovalService{
		store:          store,
		directory:      directory,
		notifier:       notifier,
		entityStatus:   entityStatus,
		evalConditions: EvaluateConditions,
		now:            time.Now,
		log:            log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// appendAudit writes an audit entry and logs a warning on failure (never
// returns an error).
func (s *ApprovalService) appendAudit(ctx context.Context, entry *repository.AuditEntry) {
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("approval_request_id", entry.ApprovalRequestID).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}
