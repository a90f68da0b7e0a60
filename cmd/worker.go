package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abhinavnist/payment-system-backend/internal/callback"
	merchantpg "github.com/Abhinavnist/payment-system-backend/internal/merchant/postgres"
	paymentpg "github.com/Abhinavnist/payment-system-backend/internal/payment/postgres"
	"github.com/Abhinavnist/payment-system-backend/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage worker pools for background jobs like merchant callback delivery.`,
}

// Callback worker command
var callbackWorkerCmd = &cobra.Command{
	Use:   "callbacks",
	Short: "Start callback delivery worker pool",
	Long:  `Redeliver merchant callbacks for resolved payments that were never acknowledged`,
	Run: func(cmd *cobra.Command, args []string) {
		startCallbackWorker()
	},
}

var (
	callbackMaxWorkers   int
	callbackQueueSize    int
	callbackPollInterval time.Duration
	callbackBatchSize    int
)

func startCallbackWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	sqlDB, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init db: %v\n", err)
		os.Exit(1)
	}
	gormDB, err := initGorm(sqlDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init orm: %v\n", err)
		os.Exit(1)
	}

	merchantRepo := merchantpg.NewMerchantRepository(gormDB)
	paymentRepo := paymentpg.NewPaymentRepository(gormDB)

	callbackConfig := callback.Config{
		Timeout:      config.Callback.Timeout,
		MaxWorkers:   getIntFlag(callbackMaxWorkers, config.Callback.MaxWorkers),
		JobQueueSize: getIntFlag(callbackQueueSize, config.Callback.JobQueueSize),
	}

	log.Info("starting callback worker",
		"max_workers", callbackConfig.MaxWorkers,
		"job_queue_size", callbackConfig.JobQueueSize,
		"poll_interval", callbackPollInterval,
		"batch_size", callbackBatchSize)

	dispatcher := callback.NewDispatcher(callbackConfig, merchantRepo, paymentRepo, log)

	// The server process fires callbacks off the in-process event bus; this
	// worker sweeps up deliveries that never landed (crashes, drops on a
	// full queue, merchant downtime).
	ticker := time.NewTicker(callbackPollInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("callback worker is running. Press Ctrl+C to stop.")

	enqueuePending := func() {
		pending, err := paymentRepo.ListResolvedUnsent(callbackBatchSize)
		if err != nil {
			log.Error("failed to list unsent callbacks", "error", err)
			return
		}
		for _, p := range pending {
			remarks := ""
			if p.Remarks != nil {
				remarks = *p.Remarks
			}
			dispatcher.Enqueue(callback.Job{
				PaymentID:  p.ID,
				MerchantID: p.MerchantID,
				Reference:  p.Reference,
				Status:     p.Status,
				Remarks:    remarks,
				Amount:     p.Amount,
			})
		}
		if len(pending) > 0 {
			log.Info("queued unsent callbacks", "count", len(pending))
		}
	}

	enqueuePending()

	for {
		select {
		case <-ticker.C:
			enqueuePending()
		case sig := <-sigChan:
			log.Info("received signal, shutting down callback worker", "signal", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			shutdownDone := make(chan struct{})
			go func() {
				dispatcher.Shutdown()
				close(shutdownDone)
			}()

			select {
			case <-shutdownDone:
				log.Info("callback worker pool shutdown complete")
			case <-ctx.Done():
				log.Warn("shutdown timeout reached, forcing exit")
			}

			if err := sqlDB.Close(); err != nil {
				log.Error("database close error", "error", err)
			}
			return
		}
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	callbackWorkerCmd.Flags().IntVar(&callbackMaxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	callbackWorkerCmd.Flags().IntVar(&callbackQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	callbackWorkerCmd.Flags().DurationVar(&callbackPollInterval, "poll-interval", 30*time.Second, "How often to scan for unsent callbacks")
	callbackWorkerCmd.Flags().IntVar(&callbackBatchSize, "batch-size", 100, "Maximum callbacks queued per scan")

	workerCmd.AddCommand(callbackWorkerCmd)
}
