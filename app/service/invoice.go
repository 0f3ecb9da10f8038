package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/regpay/ms-go-payment-relay/app/accounting"
	"github.com/regpay/ms-go-payment-relay/app/entity"
	"github.com/regpay/ms-go-payment-relay/app/repository"
)

// issueInvoice is the reconciliation core: it decides, at most once per
// gateway transaction id, whether to create an accounting document.
//
// The lookup-then-act sequence alone is not race-safe, so two storage
// guarantees carry the invariant: the placeholder insert is unique on
// transaction_id, and MarkIssued only writes a document id where none is
// recorded yet. A row whose document id is still null marks an attempt
// that was started but not confirmed; creation is retried for it (here on
// redelivery, and by the invoices retry job), which can at worst produce
// an orphan remote document while the local canonical reference stays
// single.
func (s *RelayService) issueInvoice(ctx context.Context, attempt *entity.PaymentAttempt) error {
	if attempt.TransactionID == "" || !attempt.Approved() {
		return nil
	}

	existing, err := s.invoiceRepo.FindByTransactionID(ctx, attempt.TransactionID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Issued() {
		return nil
	}

	var registration *entity.Registration
	if attempt.RegID != "" {
		registration, err = s.registrationRepo.FindByRegID(ctx, attempt.RegID)
		if err != nil {
			s.logger.WithError(err).WithField("reg_id", attempt.RegID).Warn("registration lookup failed, issuing with placeholders")
		}
	}

	amountMinor := attempt.AmountMinor
	if amountMinor == 0 && registration != nil {
		amountMinor = registration.AmountMinor
	}

	now := time.Now().UTC()
	if existing == nil {
		placeholder := &entity.InvoiceDocument{
			TransactionID: attempt.TransactionID,
			RegID:         attempt.RegID,
			FAResponseID:  registrationFAResponseID(registration),
			AmountMinor:   amountMinor,
			Status:        attempt.Status,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.invoiceRepo.Insert(ctx, placeholder); err != nil {
			if !errors.Is(err, repository.ErrInvoiceAlreadyExists) {
				return err
			}
			// Lost the claim race. Re-read: if the winner already recorded
			// a document id this delivery is done, otherwise fall through
			// and retry creation against the null-document row.
			current, findErr := s.invoiceRepo.FindByTransactionID(ctx, attempt.TransactionID)
			if findErr != nil {
				return findErr
			}
			if current != nil && current.Issued() {
				return nil
			}
		}
	}

	input := s.buildDocumentInput(attempt, registration, amountMinor)
	output, err := s.accounting.CreateDocument(ctx, input)
	if err != nil {
		failedAt := time.Now().UTC()
		if recordErr := s.invoiceRepo.RecordFailure(ctx, attempt.TransactionID, accounting.RawResponseFromError(err), failedAt); recordErr != nil {
			s.logger.WithError(recordErr).WithField("transaction_id", attempt.TransactionID).Error("invoice failure record failed")
		}
		return fmt.Errorf("document creation failed for transaction %s: %w", attempt.TransactionID, err)
	}

	claimed, err := s.invoiceRepo.MarkIssued(ctx, attempt.TransactionID, output.DocumentID, output.ReceiptURL, output.RawResponse, time.Now().UTC())
	if err != nil {
		return err
	}
	if !claimed {
		// A concurrent delivery recorded its document first; that one is
		// canonical and this result is discarded.
		s.logger.WithFields(logFields(attempt.TransactionID, output.DocumentID)).Warn("document created but another delivery was recorded as canonical")
	}

	return nil
}

func (s *RelayService) buildDocumentInput(attempt *entity.PaymentAttempt, registration *entity.Registration, amountMinor int64) *accounting.CreateDocumentInput {
	name := s.relayCfg.PlaceholderName
	email := s.relayCfg.PlaceholderEmail
	course := s.relayCfg.PlaceholderCourse
	externalIdentifier := ""
	if registration != nil {
		if registration.CustomerName != "" {
			name = registration.CustomerName
		}
		if registration.CustomerEmail != "" {
			email = registration.CustomerEmail
		}
		if cleaned := cleanCourseLabel(registration.Course); cleaned != "" {
			course = cleaned
		}
		externalIdentifier = registration.FAResponseID
	}

	comments := "Pelecard status: " + attempt.StatusCode
	if attempt.ErrorMessage != "" {
		comments += ", error: " + attempt.ErrorMessage
	}

	return &accounting.CreateDocumentInput{
		ExternalIdentifier: externalIdentifier,
		ExternalReference:  attempt.RegID,
		CustomerName:       name,
		CustomerEmail:      email,
		ItemName:           course,
		AmountMinor:        amountMinor,
		Last4:              attempt.Last4,
		Installments:       attempt.Installments,
		Comments:           comments,
	}
}

func registrationFAResponseID(registration *entity.Registration) string {
	if registration == nil {
		return ""
	}
	return registration.FAResponseID
}

// cleanCourseLabel strips the wrapping parentheses some upstream forms
// put around the course name.
func cleanCourseLabel(course string) string {
	return strings.TrimSpace(strings.Trim(course, "()"))
}

func logFields(transactionID, documentID string) map[string]interface{} {
	return map[string]interface{}{
		"transaction_id": transactionID,
		"document_id":    documentID,
	}
}
