package main

import (
	"context"
	"errors"
	"os"
	"time"

	"spendsheet/internal/ai"
	"spendsheet/internal/amqp"
	"spendsheet/internal/cli"
	"spendsheet/internal/core"
	"spendsheet/internal/log"
	"spendsheet/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting spendsheet-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, expenses will be left as they are")
	}

	// The worker's own updates publish nothing: re-publishing expense.updated
	// would only feed the web server's cache, which has its own TTL.
	led, closeLedger := cli.MustOpenLedger(context.Background(), cfg, logger)
	defer closeLedger()

	gemini := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	})
	categorizer := worker.NewCategorizeWorker(led, ai.NewAssistant(gemini, led, logger), led.Location(), logger)

	consumer, err := amqp.NewClient(amqp.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
		Queue:    cfg.AMQPQueue,
		Bindings: []string{core.EventExpenseCreated},
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	consumeDone := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		select {
		case <-consumeDone:
		case <-shutdownCtx.Done():
		}
	})

	go func() {
		defer close(consumeDone)
		if err := consumer.Consume(ctx, categorizer.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	// Catch up on anything filed under Other while the worker was down.
	if cfg.WorkerSweepInterval > 0 {
		go func() {
			sweep := func() {
				n, err := categorizer.SweepCurrentMonth(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Sweep failed", log.FieldError, err)
					return
				}
				logger.Info("Sweep finished", log.FieldCount, n)
			}
			sweep()

			ticker := time.NewTicker(cfg.WorkerSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					sweep()
				}
			}
		}()
	}

	select {
	case <-consumeDone:
		// The consumer stopped on its own; there is nothing left to drive.
		logger.Error("Consumer stopped, exiting")
		return
	case <-ctx.Done():
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
