package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-plt-approvals/internal/natsclient"
	"github.com/pesio-ai/be-plt-approvals/internal/service"
)

// EntityStatusPublisher propagates a terminal approval verdict to the
// service owning the business entity, as an event on
// entity_status.<entity_type>. The verdict→status mapping is
// entity-type-specific and lives here, not in the engine.
type EntityStatusPublisher struct {
	nats       *natsclient.Client
	log        zerolog.Logger
	entityType string
	statusFor  map[service.Verdict]string
}

// EntityStatusEvent is the JSON schema published to the owning service.
type EntityStatusEvent struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Status     string `json:"status"`
	Verdict    string `json:"verdict"`
}

// NewJournalEntryStatusUpdater routes journal entry verdicts: approved
// entries post, rejected ones return to draft.
func NewJournalEntryStatusUpdater(nats *natsclient.Client, log zerolog.Logger) *EntityStatusPublisher {
	return &EntityStatusPublisher{
		nats:       nats,
		log:        log,
		entityType: "journal_entry",
		statusFor: map[service.Verdict]string{
			service.VerdictApproved: "posted",
			service.VerdictRejected: "draft",
		},
	}
}

// NewInvoiceStatusUpdater routes AP invoice verdicts: rejection returns the
// invoice to draft for re-submission.
func NewInvoiceStatusUpdater(nats *natsclient.Client, log zerolog.Logger) *EntityStatusPublisher {
	return &EntityStatusPublisher{
		nats:       nats,
		log:        log,
		entityType: "invoice",
		statusFor: map[service.Verdict]string{
			service.VerdictApproved: "approved",
			service.VerdictRejected: "draft",
		},
	}
}

// NewPurchaseOrderStatusUpdater routes purchase order verdicts.
func NewPurchaseOrderStatusUpdater(nats *natsclient.Client, log zerolog.Logger) *EntityStatusPublisher {
	return &EntityStatusPublisher{
		nats:       nats,
		log:        log,
		entityType: "purchase_order",
		statusFor: map[service.Verdict]string{
			service.VerdictApproved: "released",
			service.VerdictRejected: "draft",
		},
	}
}

// UpdateEntityStatus publishes the entity-specific status for a verdict.
func (p *EntityStatusPublisher) UpdateEntityStatus(ctx context.Context, tenantID, entityID string, verdict service.Verdict) error {
	if p.nats == nil {
		return nil
	}

	status, ok := p.statusFor[verdict]
	if !ok {
		return fmt.Errorf("no %s status mapped for verdict %q", p.entityType, verdict)
	}

	event := &EntityStatusEvent{
		TenantID:   tenantID,
		EntityType: p.entityType,
		EntityID:   entityID,
		Status:     status,
		Verdict:    string(verdict),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal entity status event: %w", err)
	}

	subject := fmt.Sprintf("entity_status.%s", p.entityType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish entity status event: %w", err)
	}

	p.log.Debug().
		Str("subject", subject).
		Str("entity_id", entityID).
		Str("status", status).
		Msg("entity status: event published")
	return nil
}
