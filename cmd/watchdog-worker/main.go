package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"spendwatch/internal/backend"
	"spendwatch/internal/cli"
	applog "spendwatch/internal/log"
	"spendwatch/internal/services"
	"spendwatch/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting watchdog-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the watchdog worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.AMQPRequired = true
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

	watchdog := cli.NewWatchdog(cfg, result.Store, notifier)
	handler := worker.NewWatchdogWorker(watchdog)
	scheduler := services.NewWatchdogScheduler(watchdog, services.WatchdogSchedulerConfig{
		Interval:   cfg.WatchdogInterval,
		RunOnStart: true,
	})

	logger.Info("Watchdog configured",
		"limit", cfg.SpendingLimit.String(),
		"interval", cfg.WatchdogInterval,
		"timezone", cfg.WatchdogTimezone,
		"once_per_period", cfg.OncePerPeriod,
		"queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return result.AMQP.ConsumeSpendingChecks(gctx, handler.HandleSpendingCheck)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Watchdog worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Watchdog worker shutdown complete")
}
