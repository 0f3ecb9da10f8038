package types

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type DBPingResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// InitPaymentRequest is the browser's checkout-start request. The field
// names mirror the upstream form system's query parameters.
type InitPaymentRequest struct {
	RegID         string
	FAResponseID  string
	CustomerName  string
	CustomerEmail string
	Phone         string
	Course        string
	TotalMinor    int64
}

func NewInitPaymentRequestFromContext(ctx echo.Context, defaultTotalMinor int64) (*InitPaymentRequest, error) {
	req := &InitPaymentRequest{
		RegID:         strings.TrimSpace(ctx.QueryParam("RegID")),
		FAResponseID:  strings.TrimSpace(ctx.QueryParam("FAResponseID")),
		CustomerName:  strings.TrimSpace(ctx.QueryParam("CustomerName")),
		CustomerEmail: strings.TrimSpace(ctx.QueryParam("CustomerEmail")),
		Phone:         strings.TrimSpace(ctx.QueryParam("phone")),
		Course:        strings.TrimSpace(ctx.QueryParam("Course")),
		TotalMinor:    defaultTotalMinor,
	}

	if totalRaw := strings.TrimSpace(ctx.QueryParam("total")); totalRaw != "" {
		total, err := strconv.ParseInt(totalRaw, 10, 64)
		if err != nil {
			return nil, errors.New("total must be an integer amount in minor units")
		}
		req.TotalMinor = total
	}

	return req, nil
}

func (r *InitPaymentRequest) Validate() error {
	if r.TotalMinor <= 0 {
		return errors.New("total must be > 0")
	}
	return nil
}

// GatewayNotificationRequest carries the webhook body verbatim; parsing
// and repair happen downstream so a malformed body can still be audited.
type GatewayNotificationRequest struct {
	RawBody    string
	RawHeaders http.Header
}

func NewGatewayNotificationRequestFromContext(ctx echo.Context) (*GatewayNotificationRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &GatewayNotificationRequest{
		RawBody:    string(rawBody),
		RawHeaders: ctx.Request().Header.Clone(),
	}, nil
}

// ReturnRedirectRequest is the browser's return leg. Total stays a raw
// string because it is forwarded verbatim, not computed with.
type ReturnRedirectRequest struct {
	Status       string
	RegID        string
	FAResponseID string
	Total        string
	Phone        string
	Course       string
	RawHeaders   http.Header
}

func NewReturnRedirectRequestFromContext(ctx echo.Context) *ReturnRedirectRequest {
	return &ReturnRedirectRequest{
		Status:       strings.TrimSpace(ctx.QueryParam("Status")),
		RegID:        strings.TrimSpace(ctx.QueryParam("RegID")),
		FAResponseID: strings.TrimSpace(ctx.QueryParam("FAResponseID")),
		Total:        strings.TrimSpace(ctx.QueryParam("Total")),
		Phone:        strings.TrimSpace(ctx.QueryParam("phone")),
		Course:       strings.TrimSpace(ctx.QueryParam("Course")),
		RawHeaders:   ctx.Request().Header.Clone(),
	}
}
