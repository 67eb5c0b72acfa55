package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendwatch/internal/backend"
	"spendwatch/internal/cli"
	apphttp "spendwatch/internal/http"
	applog "spendwatch/internal/log"
	"spendwatch/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	notifyCfg, err := backend.NotifyFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid notifier configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	notifier, err := factory.CreateNotifier(ctx, notifyCfg)
	if err != nil {
		logger.Error("Failed to initialize notifier", "error", err, "provider", cfg.NotifyProvider)
		os.Exit(1)
	}

	store := result.Store
	categories := services.NewCategoryService(store, store)
	expenses := services.NewExpenseService(store, store, result.Publisher())
	watchdog := cli.NewWatchdog(cfg, store, notifier)

	readiness := []apphttp.ReadinessCheck{{Name: "storage", Check: store.Ping}}
	if result.AMQP != nil {
		readiness = append(readiness, apphttp.ReadinessCheck{Name: "amqp", Check: result.AMQP.Ping})
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Categories:         categories,
		Expenses:           expenses,
		Watchdog:           watchdog,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Readiness:          readiness,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting spendwatch server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"limit", cfg.SpendingLimit.String(),
			"notify_provider", cfg.NotifyProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("Server stopped gracefully")
}
