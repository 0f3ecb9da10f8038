package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/regpay/ms-go-payment-relay/app/entity"
)

var ErrInvoiceAlreadyExists = errors.New("invoice document already exists")

type InvoiceDocumentRepository struct {
	db DBTX
}

func NewInvoiceDocumentRepository(db DBTX) *InvoiceDocumentRepository {
	return &InvoiceDocumentRepository{db: db}
}

// Insert claims the transaction id with a placeholder row (null
// document_id). The unique key on transaction_id turns the claim into an
// atomic operation: a concurrent duplicate delivery gets
// ErrInvoiceAlreadyExists instead of a second row.
func (r *InvoiceDocumentRepository) Insert(ctx context.Context, doc *entity.InvoiceDocument) error {
	query := `
		INSERT INTO invoice_documents (
			transaction_id, reg_id, fa_response_id, document_id, receipt_url,
			amount_minor, status, raw_response, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		doc.TransactionID,
		doc.RegID,
		doc.FAResponseID,
		nullableStringValue(doc.DocumentID),
		nullableStringValue(doc.ReceiptURL),
		doc.AmountMinor,
		doc.Status,
		nullableStringValue(doc.RawResponse),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrInvoiceAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	doc.ID = uint64(id)
	return nil
}

// MarkIssued stores the accounting document reference, but only if no
// document id has been recorded yet. document_id is set exactly once and
// never overwritten; a losing concurrent delivery gets claimed=false.
func (r *InvoiceDocumentRepository) MarkIssued(ctx context.Context, transactionID, documentID, receiptURL, rawResponse string, now time.Time) (bool, error) {
	query := `
		UPDATE invoice_documents
		SET document_id = ?, receipt_url = ?, raw_response = ?, updated_at = ?
		WHERE transaction_id = ? AND document_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, documentID, receiptURL, rawResponse, now, transactionID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RecordFailure keeps whatever the accounting service returned so a later
// retry can be distinguished from a first attempt. The document id stays
// null.
func (r *InvoiceDocumentRepository) RecordFailure(ctx context.Context, transactionID, rawResponse string, now time.Time) error {
	query := `
		UPDATE invoice_documents
		SET raw_response = ?, updated_at = ?
		WHERE transaction_id = ? AND document_id IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, rawResponse, now, transactionID)
	return err
}

func (r *InvoiceDocumentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.InvoiceDocument, error) {
	query := selectInvoiceDocument + `
		WHERE transaction_id = ?
		LIMIT 1
	`
	return r.findOne(ctx, query, transactionID)
}

func (r *InvoiceDocumentRepository) FindLatestByRegID(ctx context.Context, regID string) (*entity.InvoiceDocument, error) {
	query := selectInvoiceDocument + `
		WHERE reg_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, regID)
}

const selectInvoiceDocument = `
		SELECT id, transaction_id, reg_id, fa_response_id, document_id, receipt_url,
			amount_minor, status, raw_response, created_at, updated_at
		FROM invoice_documents
`

func (r *InvoiceDocumentRepository) findOne(ctx context.Context, query string, arg interface{}) (*entity.InvoiceDocument, error) {
	doc := &entity.InvoiceDocument{}
	var documentID sql.NullString
	var receiptURL sql.NullString
	var rawResponse sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&doc.ID,
		&doc.TransactionID,
		&doc.RegID,
		&doc.FAResponseID,
		&documentID,
		&receiptURL,
		&doc.AmountMinor,
		&doc.Status,
		&rawResponse,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	doc.DocumentID = stringPtrFromNull(documentID)
	doc.ReceiptURL = stringPtrFromNull(receiptURL)
	doc.RawResponse = stringPtrFromNull(rawResponse)
	return doc, nil
}
