package service

import (
	"context"
	"time"
)

// RunInvoiceRetryBatch replays invoice issuance for approved attempts
// whose document was never confirmed: webhook deliveries that crashed
// after the ledger write, and creation calls that failed transiently.
func (s *RelayService) RunInvoiceRetryBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.relayCfg.InvoiceStaleAfter)

	attempts, err := s.attemptRepo.ListApprovedWithoutDocument(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, attempt := range attempts {
		if attempt == nil {
			continue
		}
		if err := s.issueInvoice(ctx, attempt); err != nil {
			s.logger.WithError(err).WithField("transaction_id", attempt.TransactionID).Error("invoice retry failed")
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
