package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
)

// AppendAudit inserts one audit entry. The table has a delete-prevention
// trigger so this is the only mutation operation exposed.
func (s *PostgresStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO approval_audit_log
		    (approval_request_id, assignee_id, tenant_id,
		     action, performed_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, performed_at
	`

	return s.q.QueryRow(ctx, query,
		entry.ApprovalRequestID,
		entry.AssigneeID,
		entry.TenantID,
		entry.Action,
		entry.PerformedBy,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
}

// ListAuditByRequest returns the full audit trail for a request, oldest first.
func (s *PostgresStore) ListAuditByRequest(ctx context.Context, requestID string) ([]*AuditEntry, error) {
	query := `
		SELECT id, approval_request_id, assignee_id, tenant_id,
		       action, performed_by, performed_at, metadata
		FROM approval_audit_log
		WHERE approval_request_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := s.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	return s.scanAuditRows(rows)
}

// ── scan helpers ─────────────────────────────────────────────────────────────

func (s *PostgresStore) scanAuditRows(rows pgx.Rows) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.ApprovalRequestID,
			&entry.AssigneeID,
			&entry.TenantID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&metadataJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
