package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-plt-approvals/internal/natsclient"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
)

// NotificationPublisher publishes approval events to NATS JetStream for
// consumption by the be-plt-notifications service.
//
// Subject convention: notifications.approvals.<event_type>
// Event types: approval_required, request_approved, request_rejected,
//              request_escalated, step_approved
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so notification failures never interrupt
// approval operations.
type NotificationPublisher struct {
	nats *natsclient.Client
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string         `json:"event_type"`
	TenantID     string         `json:"tenant_id"`
	ActorID      string         `json:"actor_id"`
	Recipients   []string       `json:"recipients"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	IsActionable bool           `json:"is_actionable,omitempty"`
	Severity     string         `json:"severity,omitempty"`
	Category     string         `json:"category,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// client. A nil client disables publishing.
func NewNotificationPublisher(nats *natsclient.Client, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nats: nats, log: log}
}

// NotifyAssignees informs newly assigned reviewers that a step awaits them.
func (p *NotificationPublisher) NotifyAssignees(ctx context.Context, req *repository.ApprovalRequest, assignees []*repository.ApprovalAssignee) {
	recipients := make([]string, 0, len(assignees))
	for _, a := range assignees {
		recipients = append(recipients, a.UserID)
	}

	stepName := ""
	if len(assignees) > 0 {
		stepName = assignees[0].StepName
	}

	p.publish(ctx, "approval_required", req, req.RequestedBy, recipients, map[string]any{
		"step_name":    stepName,
		"current_step": req.CurrentStep,
		"total_steps":  req.TotalSteps,
	})
}

// NotifyAction informs the requester that an action was processed.
func (p *NotificationPublisher) NotifyAction(ctx context.Context, req *repository.ApprovalRequest, assignee *repository.ApprovalAssignee, action repository.ApprovalAction, comments *string) {
	payload := map[string]any{
		"step_name": assignee.StepName,
		"action":    string(action),
	}
	if comments != nil {
		payload["comments"] = *comments
	}

	p.publish(ctx, eventForAction(req, action), req, assignee.UserID, []string{req.RequestedBy}, payload)
}

func eventForAction(req *repository.ApprovalRequest, action repository.ApprovalAction) string {
	switch action {
	case repository.ActionReject:
		return "request_rejected"
	case repository.ActionEscalate:
		return "request_escalated"
	default:
		if req.Status == repository.RequestStatusApproved {
			return "request_approved"
		}
		return "step_approved"
	}
}

// publish marshals and publishes one event. Subject:
// notifications.approvals.<eventType>
func (p *NotificationPublisher) publish(ctx context.Context, eventType string, req *repository.ApprovalRequest, actorID string, recipients []string, payload map[string]any) {
	if p.nats == nil {
		return
	}
	if len(recipients) == 0 {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		TenantID:     req.TenantID,
		ActorID:      actorID,
		Recipients:   recipients,
		ResourceType: "approval_request",
		ResourceID:   req.ID,
		IsActionable: eventType == "approval_required",
		Severity:     "info",
		Category:     "approvals",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.approvals.%s", eventType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("approval_request_id", req.ID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("approval_request_id", req.ID).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}
