package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/logger"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

const (
	testTenant  = "tenant-1"
	testCompany = "company-1"
)

type engineFixture struct {
	svc      *ApprovalService
	store    *memStore
	notifier *fakeNotifier
	updater  *recordingUpdater
}

func newFixture(t *testing.T, users ...*repository.User) *engineFixture {
	t.Helper()

	store := newMemStore()
	dir := &fakeDirectory{users: make(map[string]*repository.User)}
	for _, u := range users {
		dir.users[u.ID] = u
	}
	notifier := &fakeNotifier{}
	updater := &recordingUpdater{}

	registry := NewEntityStatusRegistry()
	registry.Register("journal_entry", updater)
	registry.Register("invoice", updater)

	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := NewApprovalService(store, dir, notifier, registry, log,
		WithClock(func() time.Time { return now }))

	return &engineFixture{svc: svc, store: store, notifier: notifier, updater: updater}
}

func user(id, name string, roles ...string) *repository.User {
	return &repository.User{ID: id, TenantID: testTenant, Name: name, Email: name + "@example.com", Roles: roles}
}

func (f *engineFixture) mustCreateWorkflow(t *testing.T, wf *repository.WorkflowDefinition) *repository.WorkflowDefinition {
	t.Helper()
	wf.TenantID = testTenant
	wf.CompanyID = testCompany
	if wf.Name == "" {
		wf.Name = "test workflow"
	}
	created, err := f.svc.CreateWorkflow(context.Background(), wf)
	require.NoError(t, err)
	return created
}

func twoStepWorkflow() *repository.WorkflowDefinition {
	return &repository.WorkflowDefinition{
		EntityType: "journal_entry",
		Steps: []repository.StepDefinition{
			{Name: "Manager review", Order: 1, ApproverType: repository.ApproverTypeRole, Role: "manager"},
			{Name: "Controller sign-off", Order: 2, ApproverType: repository.ApproverTypeUser, ApproverID: "user-b"},
		},
	}
}

func createInput(entityID string) *CreateApprovalRequestInput {
	return &CreateApprovalRequestInput{
		TenantID:    testTenant,
		CompanyID:   testCompany,
		EntityType:  "journal_entry",
		EntityID:    entityID,
		RequestedBy: "requester-1",
	}
}

func (f *engineFixture) act(t *testing.T, requestID, assigneeID string, action repository.ApprovalAction) (*ApprovalRequestView, error) {
	t.Helper()
	return f.svc.ProcessApprovalAction(context.Background(), &ProcessApprovalActionInput{
		TenantID:          testTenant,
		ApprovalRequestID: requestID,
		AssigneeID:        assigneeID,
		Action:            action,
	})
}

// pendingAssignee returns the single still-pending assignee in a view.
// Assignee ordering within a step is not deterministic, so tests must
// select by status rather than by index.
func pendingAssignee(t *testing.T, view *ApprovalRequestView) *repository.ApprovalAssignee {
	t.Helper()
	var pending *repository.ApprovalAssignee
	for _, a := range view.Assignees {
		if a.Status == repository.AssigneeStatusPending {
			require.Nil(t, pending, "more than one pending assignee in view")
			pending = a
		}
	}
	require.NotNil(t, pending, "no pending assignee in view")
	return pending
}

// ── creation ─────────────────────────────────────────────────────────────────

func TestCreateApprovalRequest_AssignsFirstStep(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	wf := f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)

	req := view.Request
	assert.Equal(t, wf.ID, req.WorkflowID)
	assert.Equal(t, repository.RequestStatusPending, req.Status)
	assert.Equal(t, 1, req.CurrentStep)
	assert.Equal(t, 2, req.TotalSteps)
	assert.Equal(t, 0, req.CompletedSteps)
	assert.Nil(t, req.ApprovedAt)
	assert.Nil(t, req.RejectedAt)

	require.Len(t, view.Assignees, 1)
	a := view.Assignees[0]
	assert.Equal(t, "user-a", a.UserID)
	assert.Equal(t, "Manager review", a.StepName)
	assert.Equal(t, repository.AssigneeStatusPending, a.Status)

	assert.Equal(t, 1, f.notifier.assigneeCalls)
	assert.Empty(t, f.updater.calls)
}

func TestCreateApprovalRequest_NoWorkflowFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoWorkflowFound, errors.CodeOf(err))
}

func TestCreateApprovalRequest_ConditionsNotMet(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	wf := twoStepWorkflow()
	wf.Conditions = []repository.Condition{{Field: "amount", Operator: "gte", Value: 100.0}}
	f.mustCreateWorkflow(t, wf)

	in := createInput("je-1")
	in.Metadata = map[string]any{"amount": 50.0}
	_, err := f.svc.CreateApprovalRequest(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConditionsNotMet, errors.CodeOf(err))
}

func TestCreateApprovalRequest_PicksHighestPriorityWorkflow(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))

	low := twoStepWorkflow()
	low.Name = "low"
	low.Priority = 1
	f.mustCreateWorkflow(t, low)

	high := twoStepWorkflow()
	high.Name = "high"
	high.Priority = 10
	created := f.mustCreateWorkflow(t, high)

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, view.Request.WorkflowID)
}

func TestCreateApprovalRequest_UnknownFixedApproverFails(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"))
	f.mustCreateWorkflow(t, &repository.WorkflowDefinition{
		EntityType: "journal_entry",
		Steps: []repository.StepDefinition{
			{Name: "Sign-off", Order: 1, ApproverType: repository.ApproverTypeUser, ApproverID: "ghost"},
		},
	})

	_, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))

	// Nothing committed on failure.
	assert.Empty(t, f.store.requests)
	assert.Empty(t, f.store.assignees)
}

func TestCreateApprovalRequest_AutoApproval(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	wf := twoStepWorkflow()
	wf.AutoApproval = true
	f.mustCreateWorkflow(t, wf)

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)

	req := view.Request
	assert.Equal(t, repository.RequestStatusApproved, req.Status)
	assert.NotNil(t, req.ApprovedAt)
	assert.Equal(t, req.TotalSteps, req.CompletedSteps)
	assert.Empty(t, view.Assignees)

	require.Len(t, f.updater.calls, 1)
	assert.Equal(t, VerdictApproved, f.updater.calls[0].verdict)

	history, err := f.svc.GetApprovalHistory(context.Background(), testTenant, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "auto_approved", history[0].Action)
}

// ── full approval flow ───────────────────────────────────────────────────────

func TestApprovalFlow_TwoStepsToApproved(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID
	stepOne := view.Assignees[0]

	// Step 1 approval advances to step 2.
	view, err = f.act(t, reqID, stepOne.ID, repository.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, repository.RequestStatusPending, view.Request.Status)
	assert.Equal(t, 2, view.Request.CurrentStep)
	assert.Equal(t, 1, view.Request.CompletedSteps)
	require.Len(t, view.Assignees, 2)

	stepTwo := pendingAssignee(t, view)
	assert.Equal(t, "user-b", stepTwo.UserID)
	assert.Empty(t, f.updater.calls)

	// Final step approval is terminal.
	view, err = f.act(t, reqID, stepTwo.ID, repository.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, repository.RequestStatusApproved, view.Request.Status)
	assert.Equal(t, 2, view.Request.CompletedSteps)
	require.NotNil(t, view.Request.ApprovedAt)
	assert.Nil(t, view.Request.RejectedAt)

	require.Len(t, f.updater.calls, 1)
	assert.Equal(t, statusCall{entityID: "je-1", verdict: VerdictApproved}, f.updater.calls[0])
}

func TestApprovalFlow_RejectIsImmediatelyTerminal(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID

	view, err = f.act(t, reqID, view.Assignees[0].ID, repository.ActionReject)
	require.NoError(t, err)
	assert.Equal(t, repository.RequestStatusRejected, view.Request.Status)
	require.NotNil(t, view.Request.RejectedAt)
	assert.Nil(t, view.Request.ApprovedAt)

	// No step-2 assignees were ever created.
	assert.Len(t, view.Assignees, 1)

	require.Len(t, f.updater.calls, 1)
	assert.Equal(t, statusCall{entityID: "je-1", verdict: VerdictRejected}, f.updater.calls[0])
}

func TestApprovalFlow_MultiAssigneeStepRequiresAll(t *testing.T) {
	f := newFixture(t,
		user("user-a", "Alice", "manager"),
		user("user-c", "Carol", "manager"),
		user("user-b", "Bob"),
	)
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID
	require.Len(t, view.Assignees, 2)

	// One of two managers approving does not complete the step.
	view, err = f.act(t, reqID, view.Assignees[0].ID, repository.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Request.CurrentStep)
	assert.Equal(t, 0, view.Request.CompletedSteps)
	assert.Len(t, view.Assignees, 2)

	// The remaining manager completes step 1.
	second := pendingAssignee(t, view)
	view, err = f.act(t, reqID, second.ID, repository.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Request.CurrentStep)
	assert.Equal(t, 1, view.Request.CompletedSteps)
	assert.Len(t, view.Assignees, 3)
}

// ── already-processed guards ─────────────────────────────────────────────────

func TestProcessApprovalAction_AssigneeAlreadyProcessed(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID
	assigneeID := view.Assignees[0].ID

	_, err = f.act(t, reqID, assigneeID, repository.ActionApprove)
	require.NoError(t, err)

	for _, action := range []repository.ApprovalAction{
		repository.ActionApprove, repository.ActionReject, repository.ActionEscalate,
	} {
		_, err = f.act(t, reqID, assigneeID, action)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeAlreadyProcessed, errors.CodeOf(err))
	}
}

func TestProcessApprovalAction_TerminalRequestRejectsDistinctAssignees(t *testing.T) {
	f := newFixture(t,
		user("user-a", "Alice", "manager"),
		user("user-c", "Carol", "manager"),
		user("user-b", "Bob"),
	)
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID
	require.Len(t, view.Assignees, 2)

	_, err = f.act(t, reqID, view.Assignees[0].ID, repository.ActionReject)
	require.NoError(t, err)

	// The other manager's record is still pending, but the request is
	// terminal: no further action is accepted.
	_, err = f.act(t, reqID, view.Assignees[1].ID, repository.ActionApprove)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAlreadyProcessed, errors.CodeOf(err))

	// The entity updater ran exactly once.
	require.Len(t, f.updater.calls, 1)
}

func TestProcessApprovalAction_UnknownRequestOrAssignee(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)

	_, err = f.act(t, "missing", view.Assignees[0].ID, repository.ActionApprove)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))

	_, err = f.act(t, view.Request.ID, "missing", repository.ActionApprove)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

// ── amount-based steps ───────────────────────────────────────────────────────

func amountWorkflow(threshold float64) *repository.WorkflowDefinition {
	return &repository.WorkflowDefinition{
		EntityType: "journal_entry",
		Steps: []repository.StepDefinition{
			{Name: "Amount gate", Order: 1, ApproverType: repository.ApproverTypeAmountBased, AmountThreshold: &threshold},
			{Name: "Controller sign-off", Order: 2, ApproverType: repository.ApproverTypeUser, ApproverID: "user-b"},
		},
	}
}

func TestCreateApprovalRequest_UnderThresholdStepIsSkipped(t *testing.T) {
	f := newFixture(t, user("user-b", "Bob"), user("user-d", "Dana", "cfo"))
	f.mustCreateWorkflow(t, amountWorkflow(1000))

	in := createInput("je-1")
	in.Metadata = map[string]any{"amount": 500.0}
	view, err := f.svc.CreateApprovalRequest(context.Background(), in)
	require.NoError(t, err)

	// Step 1 auto-satisfied; the request starts on step 2.
	assert.Equal(t, repository.RequestStatusPending, view.Request.Status)
	assert.Equal(t, 2, view.Request.CurrentStep)
	assert.Equal(t, 1, view.Request.CompletedSteps)
	require.Len(t, view.Assignees, 1)
	assert.Equal(t, "user-b", view.Assignees[0].UserID)
}

func TestCreateApprovalRequest_AllStepsSkippedIsApproved(t *testing.T) {
	threshold := 1000.0
	f := newFixture(t, user("user-d", "Dana", "cfo"))
	f.mustCreateWorkflow(t, &repository.WorkflowDefinition{
		EntityType: "journal_entry",
		Steps: []repository.StepDefinition{
			{Name: "Amount gate", Order: 1, ApproverType: repository.ApproverTypeAmountBased, AmountThreshold: &threshold},
		},
	})

	in := createInput("je-1")
	in.Metadata = map[string]any{"amount": 250.0}
	view, err := f.svc.CreateApprovalRequest(context.Background(), in)
	require.NoError(t, err)

	// The request never stalls pending with no assignees.
	assert.Equal(t, repository.RequestStatusApproved, view.Request.Status)
	require.NotNil(t, view.Request.ApprovedAt)
	assert.Equal(t, 1, view.Request.CompletedSteps)
	assert.Empty(t, view.Assignees)
	require.Len(t, f.updater.calls, 1)
	assert.Equal(t, VerdictApproved, f.updater.calls[0].verdict)
}

func TestCreateApprovalRequest_OverThresholdAssignsElevatedRoles(t *testing.T) {
	f := newFixture(t,
		user("user-b", "Bob"),
		user("user-d", "Dana", "cfo"),
		user("user-e", "Erin", "admin", "ceo"),
	)
	f.mustCreateWorkflow(t, amountWorkflow(1000))

	in := createInput("je-1")
	in.Metadata = map[string]any{"amount": 2500.0}
	view, err := f.svc.CreateApprovalRequest(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, view.Request.CurrentStep)
	require.Len(t, view.Assignees, 2) // Erin holds two elevated roles but is assigned once

	users := map[string]bool{}
	for _, a := range view.Assignees {
		users[a.UserID] = true
	}
	assert.True(t, users["user-d"])
	assert.True(t, users["user-e"])
}

func TestProcessApprovalAction_AdvanceSkipsUnderThresholdStep(t *testing.T) {
	threshold := 1000.0
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, &repository.WorkflowDefinition{
		EntityType: "journal_entry",
		Steps: []repository.StepDefinition{
			{Name: "Manager review", Order: 1, ApproverType: repository.ApproverTypeRole, Role: "manager"},
			{Name: "Amount gate", Order: 2, ApproverType: repository.ApproverTypeAmountBased, AmountThreshold: &threshold},
			{Name: "Controller sign-off", Order: 3, ApproverType: repository.ApproverTypeUser, ApproverID: "user-b"},
		},
	})

	in := createInput("je-1")
	in.Metadata = map[string]any{"amount": 100.0}
	view, err := f.svc.CreateApprovalRequest(context.Background(), in)
	require.NoError(t, err)

	// Approving step 1 hops over the auto-satisfied amount gate to step 3.
	view, err = f.act(t, view.Request.ID, view.Assignees[0].ID, repository.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Request.CurrentStep)
	assert.Equal(t, 2, view.Request.CompletedSteps)
	assert.Equal(t, repository.RequestStatusPending, view.Request.Status)
}

// ── escalation ───────────────────────────────────────────────────────────────

func TestProcessApprovalAction_EscalateIsInformational(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	wf := twoStepWorkflow()
	wf.EscalationRules = []repository.EscalationRule{{Trigger: "manual", Target: "cfo-1"}}
	f.mustCreateWorkflow(t, wf)

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID

	reason := "out of office"
	view, err = f.svc.ProcessApprovalAction(context.Background(), &ProcessApprovalActionInput{
		TenantID:          testTenant,
		ApprovalRequestID: reqID,
		AssigneeID:        view.Assignees[0].ID,
		Action:            repository.ActionEscalate,
		EscalationReason:  &reason,
	})
	require.NoError(t, err)

	// The request itself is unchanged: same step, still pending.
	assert.Equal(t, repository.RequestStatusPending, view.Request.Status)
	assert.Equal(t, 1, view.Request.CurrentStep)
	assert.Equal(t, 0, view.Request.CompletedSteps)

	a := view.Assignees[0]
	assert.Equal(t, repository.AssigneeStatusEscalated, a.Status)
	require.NotNil(t, a.EscalatedTo)
	assert.Equal(t, "cfo-1", *a.EscalatedTo)
	require.NotNil(t, a.EscalationReason)
	assert.Equal(t, reason, *a.EscalationReason)
	require.NotNil(t, a.CompletedAt)

	assert.Empty(t, f.updater.calls)
}

func TestProcessApprovalAction_EscalatedAssigneeDoesNotBlockStep(t *testing.T) {
	f := newFixture(t,
		user("user-a", "Alice", "manager"),
		user("user-c", "Carol", "manager"),
		user("user-b", "Bob"),
	)
	wf := twoStepWorkflow()
	wf.EscalationRules = []repository.EscalationRule{{Trigger: "manual", Target: "cfo-1"}}
	f.mustCreateWorkflow(t, wf)

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID
	require.Len(t, view.Assignees, 2)

	// One manager escalates; the step stays open on the other.
	view, err = f.act(t, reqID, view.Assignees[0].ID, repository.ActionEscalate)
	require.NoError(t, err)
	assert.Equal(t, repository.RequestStatusPending, view.Request.Status)
	assert.Equal(t, 1, view.Request.CurrentStep)
	assert.Equal(t, 0, view.Request.CompletedSteps)

	// The remaining manager's approval completes the step; the escalated
	// row does not hold the request at step 1 forever.
	remaining := pendingAssignee(t, view)
	view, err = f.act(t, reqID, remaining.ID, repository.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, repository.RequestStatusPending, view.Request.Status)
	assert.Equal(t, 2, view.Request.CurrentStep)
	assert.Equal(t, 1, view.Request.CompletedSteps)

	next := pendingAssignee(t, view)
	assert.Equal(t, "user-b", next.UserID)
}

// ── queries ──────────────────────────────────────────────────────────────────

func TestGetPendingApprovals(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)

	pending, err := f.svc.GetPendingApprovals(context.Background(), testTenant, "user-a")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, view.Request.ID, pending[0].ApprovalRequestID)

	pending, err = f.svc.GetPendingApprovals(context.Background(), testTenant, "user-b")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetApprovalHistory_RecordsActions(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	reqID := view.Request.ID

	_, err = f.act(t, reqID, view.Assignees[0].ID, repository.ActionApprove)
	require.NoError(t, err)

	history, err := f.svc.GetApprovalHistory(context.Background(), testTenant, reqID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "request_submitted", history[0].Action)
	assert.Equal(t, "approved", history[1].Action)
}

func TestTotalStepsSnapshotIsStable(t *testing.T) {
	f := newFixture(t, user("user-a", "Alice", "manager"), user("user-b", "Bob"))
	f.mustCreateWorkflow(t, twoStepWorkflow())

	view, err := f.svc.CreateApprovalRequest(context.Background(), createInput("je-1"))
	require.NoError(t, err)
	require.Equal(t, 2, view.Request.TotalSteps)

	_, err = f.act(t, view.Request.ID, view.Assignees[0].ID, repository.ActionApprove)
	require.NoError(t, err)

	got, err := f.svc.GetApprovalRequest(context.Background(), testTenant, view.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Request.TotalSteps)
}
