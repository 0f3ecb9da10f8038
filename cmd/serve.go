package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/regpay/ms-go-payment-relay/app/accounting"
	"github.com/regpay/ms-go-payment-relay/app/controller"
	"github.com/regpay/ms-go-payment-relay/app/gateway"
	"github.com/regpay/ms-go-payment-relay/app/repository"
	"github.com/regpay/ms-go-payment-relay/app/service"
	"github.com/regpay/ms-go-payment-relay/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP server handling checkout initiation, gateway callbacks, and browser redirects.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, relayService, cleanup := mustCreateRelayService()
	defer cleanup()

	relayController := controller.NewRelayController(relayService, cfg.Relay)
	e := setupHTTPServer(relayController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(relayController *controller.RelayController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", relayController.Health)
	e.GET("/db-ping", relayController.DBPing)

	e.GET("/", relayController.InitPayment)
	e.POST("/pelecard-callback", relayController.GatewayCallback)
	e.GET("/callback", relayController.ReturnRedirect)

	return e
}

func mustCreateRelayService() (*config.Config, *service.RelayService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	registrationRepo := repository.NewRegistrationRepository(db)
	attemptRepo := repository.NewPaymentAttemptRepository(db)
	invoiceRepo := repository.NewInvoiceDocumentRepository(db)
	auditRepo := repository.NewAuditEventRepository(db)

	gatewayClient := gateway.NewClient(gateway.Config{
		GatewayURL:  cfg.Pelecard.GatewayURL,
		Terminal:    cfg.Pelecard.Terminal,
		User:        cfg.Pelecard.User,
		Password:    cfg.Pelecard.Password,
		GoodMail:    cfg.Pelecard.GoodMail,
		ErrorMail:   cfg.Pelecard.ErrorMail,
		MinPayments: cfg.Pelecard.MinPayments,
		MaxPayments: cfg.Pelecard.MaxPayments,
		HTTPTimeout: cfg.Pelecard.HTTPTimeout,
	})

	accountingClient := accounting.NewClient(accounting.Config{
		APIURL:      cfg.Sumit.APIURL,
		CompanyID:   cfg.Sumit.CompanyID,
		APIKey:      cfg.Sumit.APIKey,
		HTTPTimeout: cfg.Sumit.HTTPTimeout,
	})

	relayService := service.NewRelayService(
		registrationRepo,
		attemptRepo,
		invoiceRepo,
		auditRepo,
		gatewayClient,
		accountingClient,
		db,
		cfg.Relay,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, relayService, cleanup
}
