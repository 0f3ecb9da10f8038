package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	APIURL      string
	CompanyID   int64
	APIKey      string
	HTTPTimeout time.Duration
}

// Client issues invoice/receipt documents through the Sumit accounting
// API. Only document creation is used; the document id it returns is the
// canonical proof of issuance.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type CreateDocumentInput struct {
	ExternalIdentifier string
	ExternalReference  string
	CustomerName       string
	CustomerEmail      string
	ItemName           string
	AmountMinor        int64
	Last4              string
	Installments       int32
	Comments           string
}

type CreateDocumentOutput struct {
	DocumentID  string
	ReceiptURL  string
	RawResponse string
}

type createError struct {
	message     string
	RawResponse string
}

func (e *createError) Error() string {
	return e.message
}

// RawResponseFromError recovers whatever body the accounting service sent
// back on a failed creation, so the failure can be persisted for audit.
func RawResponseFromError(err error) string {
	var ce *createError
	if errors.As(err, &ce) {
		return ce.RawResponse
	}
	return ""
}

// CreateDocument posts one document-creation request: a single line item
// at the resolved amount and a single credit-card payment record.
func (c *Client) CreateDocument(ctx context.Context, input *CreateDocumentInput) (*CreateDocumentOutput, error) {
	amount := float64(input.AmountMinor) / 100

	payload := map[string]interface{}{
		"Details": map[string]interface{}{
			"Date": time.Now().UTC().Format(time.RFC3339),
			"Customer": map[string]interface{}{
				"ExternalIdentifier": input.ExternalIdentifier,
				"Name":               input.CustomerName,
				"EmailAddress":       input.CustomerEmail,
			},
			"Type":              1,
			"Comments":          input.Comments,
			"ExternalReference": input.ExternalReference,
		},
		"Items": []map[string]interface{}{
			{
				"Quantity":   1,
				"UnitPrice":  amount,
				"TotalPrice": amount,
				"Item":       map[string]string{"Name": input.ItemName},
			},
		},
		"Payments": []map[string]interface{}{
			{
				"Amount": amount,
				"Type":   "CreditCard",
				"Details_CreditCard": map[string]interface{}{
					"Last4Digits":      input.Last4,
					"NumberOfPayments": input.Installments,
				},
			},
		},
		"VATIncluded": true,
		"Credentials": map[string]interface{}{
			"CompanyID": c.cfg.CompanyID,
			"APIKey":    c.cfg.APIKey,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	raw := string(respBody)

	if resp.StatusCode >= 400 {
		return nil, &createError{
			message:     fmt.Sprintf("sumit document creation failed: status=%d", resp.StatusCode),
			RawResponse: raw,
		}
	}

	var parsed struct {
		Data struct {
			DocumentID          json.Number `json:"DocumentID"`
			DocumentNumber      json.Number `json:"DocumentNumber"`
			DocumentDownloadURL string      `json:"DocumentDownloadURL"`
		} `json:"Data"`
		Status           int    `json:"Status"`
		UserErrorMessage string `json:"UserErrorMessage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &createError{
			message:     "sumit document creation response unparseable: " + err.Error(),
			RawResponse: raw,
		}
	}

	documentID := strings.TrimSpace(parsed.Data.DocumentID.String())
	if documentID == "" || documentID == "0" {
		documentID = strings.TrimSpace(parsed.Data.DocumentNumber.String())
	}
	if parsed.Status != 0 || documentID == "" || documentID == "0" {
		message := strings.TrimSpace(parsed.UserErrorMessage)
		if message == "" {
			message = "document id missing from response"
		}
		return nil, &createError{
			message:     "sumit document creation rejected: " + message,
			RawResponse: raw,
		}
	}

	return &CreateDocumentOutput{
		DocumentID:  documentID,
		ReceiptURL:  strings.TrimSpace(parsed.Data.DocumentDownloadURL),
		RawResponse: raw,
	}, nil
}
