package entity

import "time"

// InvoiceDocument records the outcome of accounting-document creation for
// one gateway transaction. A non-null DocumentID is conclusive proof the
// document exists; a row with a null DocumentID marks an attempt that was
// started but not confirmed and is eligible for retry.
type InvoiceDocument struct {
	ID uint64

	TransactionID string
	RegID         string
	FAResponseID  string

	DocumentID  *string
	ReceiptURL  *string
	AmountMinor int64
	Status      int32
	RawResponse *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *InvoiceDocument) Issued() bool {
	return d.DocumentID != nil && *d.DocumentID != ""
}
