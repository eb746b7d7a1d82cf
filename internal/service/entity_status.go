package service

import (
	"context"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
)

// Verdict is the terminal outcome the engine reports to the owning entity
// service. The mapping of verdict to an entity-specific status string is
// owned entirely by the updater implementation.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// EntityStatusUpdater mutates the business entity's status on a terminal
// verdict. Invoked exactly once per terminal transition.
type EntityStatusUpdater interface {
	UpdateEntityStatus(ctx context.Context, tenantID, entityID string, verdict Verdict) error
}

// EntityStatusRegistry dispatches terminal verdicts to the updater
// registered for an entity type, so new entity types are pluggable without
// touching the engine. Register all updaters before serving requests.
type EntityStatusRegistry struct {
	updaters map[string]EntityStatusUpdater
}

// NewEntityStatusRegistry creates an empty registry.
func NewEntityStatusRegistry() *EntityStatusRegistry {
	return &EntityStatusRegistry{updaters: make(map[string]EntityStatusUpdater)}
}

// Register binds an updater to an entity type, replacing any previous one.
func (r *EntityStatusRegistry) Register(entityType string, updater EntityStatusUpdater) {
	r.updaters[entityType] = updater
}

// Update dispatches the verdict to the registered updater.
func (r *EntityStatusRegistry) Update(ctx context.Context, entityType, tenantID, entityID string, verdict Verdict) error {
	updater, ok := r.updaters[entityType]
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"no entity status updater registered for entity type %q", entityType)
	}
	return updater.UpdateEntityStatus(ctx, tenantID, entityID, verdict)
}
