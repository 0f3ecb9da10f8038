package entity

import "time"

const (
	AttemptStatusFailed   int32 = 0
	AttemptStatusApproved int32 = 1
)

// PaymentAttempt is the ledger of gateway-reported outcomes. The gateway
// transaction id is the sole idempotency anchor: RegID can repeat across
// restarted checkouts and webhooks can be redelivered, the transaction id
// cannot.
type PaymentAttempt struct {
	ID uint64

	TransactionID string
	RegID         string

	Status       int32
	AmountMinor  int64
	Installments int32
	Last4        string
	StatusCode   string
	ErrorMessage string
	RawPayload   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *PaymentAttempt) Approved() bool {
	return a.Status == AttemptStatusApproved
}
