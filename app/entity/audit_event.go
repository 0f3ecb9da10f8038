package entity

import "time"

const (
	AuditKindWebhook  = "webhook"
	AuditKindRedirect = "redirect"
)

// AuditEvent is an append-only record of every inbound notification,
// written regardless of whether the notification was acted on. It is a
// forensic trail, not a control-flow input.
type AuditEvent struct {
	ID uint64

	EventID    string
	RegID      *string
	Kind       string
	RawPayload string
	RawHeaders string

	CreatedAt time.Time
}
