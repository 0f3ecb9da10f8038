package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/regpay/ms-go-payment-relay/app/entity"
)

type PaymentAttemptRepository struct {
	db DBTX
}

func NewPaymentAttemptRepository(db DBTX) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{db: db}
}

// Upsert records the gateway-reported outcome keyed by transaction_id.
// The unique key on transaction_id makes the upsert atomic under
// concurrent duplicate webhook delivery; redelivery with the same facts
// leaves one row, redelivery with corrected facts overwrites in place.
func (r *PaymentAttemptRepository) Upsert(ctx context.Context, attempt *entity.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			transaction_id, reg_id, status, amount_minor, installments, last4,
			status_code, error_message, raw_payload, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			reg_id = VALUES(reg_id),
			status = VALUES(status),
			amount_minor = VALUES(amount_minor),
			installments = VALUES(installments),
			last4 = VALUES(last4),
			status_code = VALUES(status_code),
			error_message = VALUES(error_message),
			raw_payload = VALUES(raw_payload),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		attempt.TransactionID,
		attempt.RegID,
		attempt.Status,
		attempt.AmountMinor,
		attempt.Installments,
		attempt.Last4,
		attempt.StatusCode,
		attempt.ErrorMessage,
		attempt.RawPayload,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	return err
}

func (r *PaymentAttemptRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.PaymentAttempt, error) {
	query := selectAttempt + `
		WHERE transaction_id = ?
		LIMIT 1
	`
	return r.findOne(ctx, query, transactionID)
}

// FindLatestByRegID returns the most recently created attempt for a
// registration. Used only by the redirect composer as a best-effort read.
func (r *PaymentAttemptRepository) FindLatestByRegID(ctx context.Context, regID string) (*entity.PaymentAttempt, error) {
	query := selectAttempt + `
		WHERE reg_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, regID)
}

// ListApprovedWithoutDocument feeds the invoice retry job: approved
// attempts older than the cutoff whose invoice row is missing or still
// has a null document id.
func (r *PaymentAttemptRepository) ListApprovedWithoutDocument(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentAttempt, error) {
	query := `
		SELECT a.id, a.transaction_id, a.reg_id, a.status, a.amount_minor, a.installments,
			a.last4, a.status_code, a.error_message, a.raw_payload, a.created_at, a.updated_at
		FROM payment_attempts a
		LEFT JOIN invoice_documents d ON d.transaction_id = a.transaction_id
		WHERE a.status = ?
		  AND a.updated_at <= ?
		  AND (d.id IS NULL OR d.document_id IS NULL)
		ORDER BY a.updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.AttemptStatusApproved, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]*entity.PaymentAttempt, 0)
	for rows.Next() {
		item := &entity.PaymentAttempt{}
		if err := scanAttempt(rows, item); err != nil {
			return nil, err
		}
		attempts = append(attempts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attempts, nil
}

const selectAttempt = `
		SELECT id, transaction_id, reg_id, status, amount_minor, installments, last4,
			status_code, error_message, raw_payload, created_at, updated_at
		FROM payment_attempts
`

func (r *PaymentAttemptRepository) findOne(ctx context.Context, query string, arg interface{}) (*entity.PaymentAttempt, error) {
	attempt := &entity.PaymentAttempt{}
	if err := scanAttempt(r.db.QueryRowContext(ctx, query, arg), attempt); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return attempt, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(scan rowScanner, attempt *entity.PaymentAttempt) error {
	return scan.Scan(
		&attempt.ID,
		&attempt.TransactionID,
		&attempt.RegID,
		&attempt.Status,
		&attempt.AmountMinor,
		&attempt.Installments,
		&attempt.Last4,
		&attempt.StatusCode,
		&attempt.ErrorMessage,
		&attempt.RawPayload,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
}
