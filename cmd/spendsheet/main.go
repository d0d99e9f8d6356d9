package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendsheet/internal/ai"
	"spendsheet/internal/amqp"
	"spendsheet/internal/cache"
	"spendsheet/internal/cli"
	"spendsheet/internal/core"
	apphttp "spendsheet/internal/http"
	"spendsheet/internal/log"
	"spendsheet/internal/report"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	startCtx := context.Background()
	led, closeLedger := cli.MustOpenLedger(startCtx, cfg, logger)
	defer closeLedger()
	loc := led.Location()

	reports := report.New(led, report.Options{
		Location:  loc,
		Logger:    logger,
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
	})
	led.AddPublisher(reports)

	cacheManager := cache.NewManager()
	if c := reports.Cache(); c != nil {
		cacheManager.Register(c)
		cacheManager.StartCleanup(cfg.ReportCacheTTL)
	}
	defer cacheManager.Stop()

	// Change events are optional; a broker outage only loses events.
	if cfg.AMQPEnabled() {
		publisher, err := amqp.NewClient(amqp.Config{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
			Bindings: []string{core.EventExpenseCreated},
		}, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
		} else {
			defer publisher.Close()
			led.AddPublisher(publisher)
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange)
		}
	}

	gemini := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	})
	chat := ai.NewChatProxy(ai.ChatConfig{
		APIKey:       cfg.ChatAPIKey,
		BaseURL:      cfg.ChatBaseURL,
		DefaultModel: cfg.ChatModel,
	})

	// Provision up front so a bad spreadsheet id shows in the startup logs.
	if err := led.Provision(startCtx); err != nil {
		if core.IsConfigError(err) {
			logger.Error("Store is misconfigured", log.FieldError, err)
			os.Exit(1)
		}
		logger.Warn("Initial provisioning failed, will retry on first request", log.FieldError, err)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             led,
		Reports:            reports,
		Assistant:          ai.NewAssistant(gemini, led, logger),
		Chat:               chat,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		TrustedProxies:     cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting spendsheet server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String(),
		"ai_enabled", gemini.Configured(),
		"chat_enabled", chat.Available(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
