package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

// memStore is an in-memory repository.Store for engine tests. A mutex
// serializes transactions the way the row lock does in Postgres.
type memStore struct {
	mu        sync.Mutex
	clock     time.Time
	workflows map[string]*repository.WorkflowDefinition
	requests  map[string]*repository.ApprovalRequest
	assignees map[string]*repository.ApprovalAssignee
	audit     []*repository.AuditEntry
	inTx      bool
}

func newMemStore() *memStore {
	return &memStore{
		clock:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		workflows: make(map[string]*repository.WorkflowDefinition),
		requests:  make(map[string]*repository.ApprovalRequest),
		assignees: make(map[string]*repository.ApprovalAssignee),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) InTransaction(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTx = true
	defer func() { s.inTx = false }()
	return fn(s)
}

func (s *memStore) CreateWorkflow(ctx context.Context, wf *repository.WorkflowDefinition) error {
	wf.CreatedAt = s.tick()
	wf.UpdatedAt = wf.CreatedAt
	cp := *wf
	s.workflows[wf.ID] = &cp
	return nil
}

func (s *memStore) GetWorkflowByID(ctx context.Context, tenantID, workflowID string) (*repository.WorkflowDefinition, error) {
	wf, ok := s.workflows[workflowID]
	if !ok || wf.TenantID != tenantID {
		return nil, errors.NotFound("workflow", workflowID)
	}
	cp := *wf
	return &cp, nil
}

func (s *memStore) FindWorkflows(ctx context.Context, tenantID, companyID, entityType string, entitySubType *string) ([]*repository.WorkflowDefinition, error) {
	var matches []*repository.WorkflowDefinition
	for _, wf := range s.workflows {
		if wf.TenantID != tenantID || wf.CompanyID != companyID || wf.EntityType != entityType || !wf.IsActive {
			continue
		}
		if wf.EntitySubType != nil {
			if entitySubType == nil || *wf.EntitySubType != *entitySubType {
				continue
			}
		}
		cp := *wf
		matches = append(matches, &cp)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *memStore) CreateRequest(ctx context.Context, req *repository.ApprovalRequest, assignees []*repository.ApprovalAssignee) error {
	req.CreatedAt = s.tick()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	s.requests[req.ID] = &cp
	return s.CreateAssignees(ctx, assignees)
}

func (s *memStore) GetRequest(ctx context.Context, tenantID, requestID string) (*repository.ApprovalRequest, error) {
	req, ok := s.requests[requestID]
	if !ok || req.TenantID != tenantID {
		return nil, errors.NotFound("approval_request", requestID)
	}
	cp := *req
	return &cp, nil
}

func (s *memStore) GetRequestForUpdate(ctx context.Context, tenantID, requestID string) (*repository.ApprovalRequest, error) {
	return s.GetRequest(ctx, tenantID, requestID)
}

func (s *memStore) UpdateRequest(ctx context.Context, req *repository.ApprovalRequest) error {
	if _, ok := s.requests[req.ID]; !ok {
		return errors.NotFound("approval_request", req.ID)
	}
	req.UpdatedAt = s.tick()
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *memStore) GetAssignee(ctx context.Context, requestID, assigneeID string) (*repository.ApprovalAssignee, error) {
	a, ok := s.assignees[assigneeID]
	if !ok || a.ApprovalRequestID != requestID {
		return nil, errors.NotFound("assignee", assigneeID)
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) ListAssignees(ctx context.Context, requestID string) ([]*repository.ApprovalAssignee, error) {
	var out []*repository.ApprovalAssignee
	for _, a := range s.assignees {
		if a.ApprovalRequestID != requestID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) CreateAssignees(ctx context.Context, assignees []*repository.ApprovalAssignee) error {
	for _, a := range assignees {
		cp := *a
		s.assignees[a.ID] = &cp
	}
	return nil
}

func (s *memStore) UpdateAssignee(ctx context.Context, a *repository.ApprovalAssignee) error {
	if _, ok := s.assignees[a.ID]; !ok {
		return errors.NotFound("assignee", a.ID)
	}
	cp := *a
	s.assignees[a.ID] = &cp
	return nil
}

func (s *memStore) ListPendingAssigneesForUser(ctx context.Context, tenantID, userID string) ([]*repository.ApprovalAssignee, error) {
	var out []*repository.ApprovalAssignee
	for _, a := range s.assignees {
		if a.UserID != userID || a.Status != repository.AssigneeStatusPending {
			continue
		}
		req, ok := s.requests[a.ApprovalRequestID]
		if !ok || req.TenantID != tenantID || req.Status != repository.RequestStatusPending {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) AppendAudit(ctx context.Context, entry *repository.AuditEntry) error {
	entry.PerformedAt = s.tick()
	cp := *entry
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *memStore) ListAuditByRequest(ctx context.Context, requestID string) ([]*repository.AuditEntry, error) {
	var out []*repository.AuditEntry
	for _, e := range s.audit {
		if e.ApprovalRequestID == requestID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── collaborator fakes ───────────────────────────────────────────────────────

type fakeDirectory struct {
	users map[string]*repository.User
}

func (d *fakeDirectory) FindUserByID(ctx context.Context, tenantID, userID string) (*repository.User, error) {
	u, ok := d.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDirectory) FindUsersByRole(ctx context.Context, tenantID, role string) ([]*repository.User, error) {
	var out []*repository.User
	for _, u := range d.users {
		if u.TenantID != tenantID {
			continue
		}
		for _, r := range u.Roles {
			if r == role {
				cp := *u
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeNotifier struct {
	assigneeCalls int
	actionCalls   int
}

func (n *fakeNotifier) NotifyAssignees(ctx context.Context, req *repository.ApprovalRequest, assignees []*repository.ApprovalAssignee) {
	n.assigneeCalls++
}

func (n *fakeNotifier) NotifyAction(ctx context.Context, req *repository.ApprovalRequest, assignee *repository.ApprovalAssignee, action repository.ApprovalAction, comments *string) {
	n.actionCalls++
}

type statusCall struct {
	entityID string
	verdict  Verdict
}

type recordingUpdater struct {
	calls []statusCall
}

func (u *recordingUpdater) UpdateEntityStatus(ctx context.Context, tenantID, entityID string, verdict Verdict) error {
	u.calls = append(u.calls, statusCall{entityID: entityID, verdict: verdict})
	return nil
}
