package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/regpay/ms-go-payment-relay/app/factory"
	"github.com/regpay/ms-go-payment-relay/app/service"
	"github.com/regpay/ms-go-payment-relay/app/types"
	"github.com/regpay/ms-go-payment-relay/config"
)

type RelayController struct {
	relayService *service.RelayService
	relayCfg     config.RelayConfig
	logger       logrus.FieldLogger
}

func NewRelayController(relayService *service.RelayService, relayCfg config.RelayConfig) *RelayController {
	return &RelayController{
		relayService: relayService,
		relayCfg:     relayCfg,
		logger:       factory.NewModuleLogger("relay-controller"),
	}
}

func (c *RelayController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// InitPayment starts a checkout and sends the browser to the gateway's
// hosted page. This is the one synchronous user-facing flow, so failures
// surface as a 500 with a diagnostic body.
func (c *RelayController) InitPayment(ctx echo.Context) error {
	req, err := types.NewInitPaymentRequestFromContext(ctx, c.relayCfg.DefaultTotalMinor)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: err.Error()})
	}

	redirectURL, err := c.relayService.InitiatePayment(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: err.Error()})
		}
		c.logger.WithError(err).WithField("reg_id", req.RegID).Error("payment initiation failed")
		return ctx.String(http.StatusInternalServerError, "payment initiation failed: "+err.Error())
	}

	return ctx.Redirect(http.StatusFound, redirectURL)
}

// GatewayCallback receives the server-to-server webhook. It always
// answers 200: the gateway's retry behavior on non-2xx is aggressive and
// a retry storm helps nobody, so internal failures are logged only.
func (c *RelayController) GatewayCallback(ctx echo.Context) error {
	req, err := types.NewGatewayNotificationRequestFromContext(ctx)
	if err != nil {
		c.logger.WithError(err).Error("webhook body read failed")
		return ctx.String(http.StatusOK, "OK")
	}

	if err := c.relayService.HandleGatewayNotification(ctx.Request().Context(), req); err != nil {
		c.logger.WithError(err).Error("webhook processing failed")
	}

	return ctx.String(http.StatusOK, "OK")
}

// ReturnRedirect receives the browser's return leg and forwards it to the
// downstream form system. It never fails the user-visible redirect.
func (c *RelayController) ReturnRedirect(ctx echo.Context) error {
	req := types.NewReturnRedirectRequestFromContext(ctx)
	forwardURL := c.relayService.ComposeReturnRedirect(ctx.Request().Context(), req)
	return ctx.Redirect(http.StatusFound, forwardURL)
}

func (c *RelayController) DBPing(ctx echo.Context) error {
	if err := c.relayService.PingStore(ctx.Request().Context()); err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, &types.DBPingResponse{Status: "down", Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, &types.DBPingResponse{Status: "ok"})
}
