package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/regpay/ms-go-payment-relay/app/accounting"
	"github.com/regpay/ms-go-payment-relay/app/entity"
	"github.com/regpay/ms-go-payment-relay/app/factory"
	"github.com/regpay/ms-go-payment-relay/app/gateway"
	"github.com/regpay/ms-go-payment-relay/app/types"
	"github.com/regpay/ms-go-payment-relay/config"
)

const defaultBatchSize = int32(100)

type registrationRepository interface {
	Upsert(ctx context.Context, registration *entity.Registration) error
	FindByRegID(ctx context.Context, regID string) (*entity.Registration, error)
}

type paymentAttemptRepository interface {
	Upsert(ctx context.Context, attempt *entity.PaymentAttempt) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.PaymentAttempt, error)
	FindLatestByRegID(ctx context.Context, regID string) (*entity.PaymentAttempt, error)
	ListApprovedWithoutDocument(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentAttempt, error)
}

type invoiceDocumentRepository interface {
	Insert(ctx context.Context, doc *entity.InvoiceDocument) error
	MarkIssued(ctx context.Context, transactionID, documentID, receiptURL, rawResponse string, now time.Time) (bool, error)
	RecordFailure(ctx context.Context, transactionID, rawResponse string, now time.Time) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.InvoiceDocument, error)
	FindLatestByRegID(ctx context.Context, regID string) (*entity.InvoiceDocument, error)
}

type auditEventRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
}

type gatewayClient interface {
	Initiate(ctx context.Context, input *gateway.InitiateInput) (string, error)
}

type accountingClient interface {
	CreateDocument(ctx context.Context, input *accounting.CreateDocumentInput) (*accounting.CreateDocumentOutput, error)
}

type storePinger interface {
	PingContext(ctx context.Context) error
}

type RelayService struct {
	registrationRepo registrationRepository
	attemptRepo      paymentAttemptRepository
	invoiceRepo      invoiceDocumentRepository
	auditRepo        auditEventRepository
	gateway          gatewayClient
	accounting       accountingClient
	pinger           storePinger
	relayCfg         config.RelayConfig
	logger           logrus.FieldLogger
}

func NewRelayService(
	registrationRepo registrationRepository,
	attemptRepo paymentAttemptRepository,
	invoiceRepo invoiceDocumentRepository,
	auditRepo auditEventRepository,
	gatewayClient gatewayClient,
	accountingClient accountingClient,
	pinger storePinger,
	relayCfg config.RelayConfig,
) *RelayService {
	return &RelayService{
		registrationRepo: registrationRepo,
		attemptRepo:      attemptRepo,
		invoiceRepo:      invoiceRepo,
		auditRepo:        auditRepo,
		gateway:          gatewayClient,
		accounting:       accountingClient,
		pinger:           pinger,
		relayCfg:         relayCfg,
		logger:           factory.NewModuleLogger("relay-service"),
	}
}

// InitiatePayment upserts the registration and asks the gateway for a
// hosted-page URL. The registration write is bookkeeping: if it fails the
// checkout still proceeds, so the failure is logged and swallowed.
func (s *RelayService) InitiatePayment(ctx context.Context, req *types.InitPaymentRequest) (string, error) {
	if req.TotalMinor <= 0 {
		return "", fmt.Errorf("%w: total must be > 0", ErrInvalidRequest)
	}

	now := time.Now().UTC()
	registration := &entity.Registration{
		RegID:         req.RegID,
		FAResponseID:  req.FAResponseID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Phone:         req.Phone,
		Course:        req.Course,
		AmountMinor:   req.TotalMinor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.registrationRepo.Upsert(ctx, registration); err != nil {
		s.logger.WithError(err).WithField("reg_id", req.RegID).Error("registration upsert failed")
	}

	commonQS := url.Values{}
	commonQS.Set("RegID", req.RegID)
	commonQS.Set("FAResponseID", req.FAResponseID)
	commonQS.Set("CustomerName", req.CustomerName)
	commonQS.Set("CustomerEmail", req.CustomerEmail)
	commonQS.Set("phone", req.Phone)
	commonQS.Set("Course", req.Course)
	commonQS.Set("Total", strconv.FormatInt(req.TotalMinor, 10))

	base := strings.TrimRight(s.relayCfg.PublicBaseURL, "/")
	redirectURL, err := s.gateway.Initiate(ctx, &gateway.InitiateInput{
		AmountMinor:       req.TotalMinor,
		GoodURL:           base + "/callback?" + commonQS.Encode() + "&Status=approved",
		ErrorURL:          base + "/callback?" + commonQS.Encode() + "&Status=failed",
		ServerCallbackURL: base + "/pelecard-callback",
		ParamX:            gateway.BuildParamX(req.RegID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayInit, err)
	}

	return redirectURL, nil
}

// HandleGatewayNotification runs the authoritative webhook path: audit,
// repair+parse, normalize, ledger upsert, and, for approved results,
// invoice issuance. The returned error is for logging only; the HTTP
// handler answers 200 regardless, to keep the gateway from retry-storming.
func (s *RelayService) HandleGatewayNotification(ctx context.Context, req *types.GatewayNotificationRequest) error {
	fields, parseErr := gateway.ParseNotification([]byte(req.RawBody))

	var result *gateway.Result
	var regID *string
	if parseErr == nil {
		result = gateway.NormalizeResult(fields)
		if result.RegID != "" {
			regID = &result.RegID
		}
	}
	s.recordAudit(ctx, regID, entity.AuditKindWebhook, req.RawBody, req.RawHeaders)

	if parseErr != nil {
		return parseErr
	}
	if result.TransactionID == "" {
		// Nothing to key the ledger or the invoice on; the audit row is
		// all this notification gets.
		s.logger.WithField("reg_id", result.RegID).Warn("notification without transaction id skipped")
		return nil
	}

	now := time.Now().UTC()
	attempt := &entity.PaymentAttempt{
		TransactionID: result.TransactionID,
		RegID:         result.RegID,
		Status:        attemptStatus(result.Approved),
		AmountMinor:   result.AmountMinor,
		Installments:  result.Installments,
		Last4:         result.Last4,
		StatusCode:    result.StatusCode,
		ErrorMessage:  result.ErrorMessage,
		RawPayload:    req.RawBody,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.attemptRepo.Upsert(ctx, attempt); err != nil {
		// The ledger is a record, not a gate; issuance still proceeds.
		s.logger.WithError(err).WithField("transaction_id", result.TransactionID).Error("payment attempt upsert failed")
	}

	if !result.Approved {
		return nil
	}

	return s.issueInvoice(ctx, attempt)
}

// ComposeReturnRedirect builds the forward URL for the browser's return
// leg. The enrichment read is best-effort: the webhook may not have
// arrived yet, and the redirect never waits for it.
func (s *RelayService) ComposeReturnRedirect(ctx context.Context, req *types.ReturnRedirectRequest) string {
	var regID *string
	if req.RegID != "" {
		regID = &req.RegID
	}
	s.recordAudit(ctx, regID, entity.AuditKindRedirect, redirectAuditPayload(req), req.RawHeaders)

	values := url.Values{}
	values.Set("RegID", req.RegID)
	values.Set("FAResponseID", req.FAResponseID)
	values.Set("Total", req.Total)
	values.Set("Status", req.Status)
	values.Set("phone", req.Phone)
	values.Set("Course", req.Course)

	if req.RegID != "" {
		if attempt, err := s.attemptRepo.FindLatestByRegID(ctx, req.RegID); err != nil {
			s.logger.WithError(err).WithField("reg_id", req.RegID).Warn("redirect enrichment attempt read failed")
		} else if attempt != nil && attempt.ErrorMessage != "" {
			values.Set("ErrorMessage", attempt.ErrorMessage)
		}

		if doc, err := s.invoiceRepo.FindLatestByRegID(ctx, req.RegID); err != nil {
			s.logger.WithError(err).WithField("reg_id", req.RegID).Warn("redirect enrichment invoice read failed")
		} else if doc != nil && doc.ReceiptURL != nil && *doc.ReceiptURL != "" {
			values.Set("ReceiptURL", *doc.ReceiptURL)
		}
	}

	return s.relayCfg.FormForwardURL + "?" + values.Encode()
}

func (s *RelayService) PingStore(ctx context.Context) error {
	return s.pinger.PingContext(ctx)
}

func (s *RelayService) recordAudit(ctx context.Context, regID *string, kind, rawPayload string, rawHeaders http.Header) {
	headersJSON, err := json.Marshal(rawHeaders)
	if err != nil {
		headersJSON = []byte("{}")
	}

	event := &entity.AuditEvent{
		EventID:    uuid.NewString(),
		RegID:      regID,
		Kind:       kind,
		RawPayload: rawPayload,
		RawHeaders: string(headersJSON),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.auditRepo.Create(ctx, event); err != nil {
		s.logger.WithError(err).WithField("kind", kind).Error("audit event insert failed")
	}
}

func (s *RelayService) batchSize() int32 {
	if s.relayCfg.JobBatchSize > 0 {
		return s.relayCfg.JobBatchSize
	}
	return defaultBatchSize
}

func attemptStatus(approved bool) int32 {
	if approved {
		return entity.AttemptStatusApproved
	}
	return entity.AttemptStatusFailed
}

func redirectAuditPayload(req *types.ReturnRedirectRequest) string {
	payload, err := json.Marshal(map[string]string{
		"Status":       req.Status,
		"RegID":        req.RegID,
		"FAResponseID": req.FAResponseID,
		"Total":        req.Total,
		"phone":        req.Phone,
		"Course":       req.Course,
	})
	if err != nil {
		return ""
	}
	return string(payload)
}
