package repository

import (
	"context"

	"github.com/regpay/ms-go-payment-relay/app/entity"
)

type AuditEventRepository struct {
	db DBTX
}

func NewAuditEventRepository(db DBTX) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			event_id, reg_id, kind, raw_payload, raw_headers, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.EventID,
		nullableStringValue(event.RegID),
		event.Kind,
		event.RawPayload,
		event.RawHeaders,
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}
