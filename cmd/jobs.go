package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/regpay/ms-go-payment-relay/app/service"
	"github.com/regpay/ms-go-payment-relay/config"
)

var (
	workerMode bool
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Run invoice-related commands",
}

var invoicesRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry document creation for approved attempts without a confirmed invoice",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"invoices_retry",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.InvoiceRetryInterval },
			func(s *service.RelayService, ctx context.Context) error {
				return s.RunInvoiceRetryBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(invoicesRetryCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.RelayService, ctx context.Context) error,
) {
	cfg, relayService, cleanup := mustCreateRelayService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), relayService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(relayService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	relayService *service.RelayService,
	fn func(s *service.RelayService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(relayService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(relayService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
