package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"vozruta/internal/amqp"
	"vozruta/internal/cli"
	"vozruta/internal/config"
	apphttp "vozruta/internal/http"
	"vozruta/internal/ledger"
	"vozruta/internal/log"
	"vozruta/internal/notify"
	"vozruta/internal/parser"
	"vozruta/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger(log.ComponentApp), nil)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	be := cli.InitBackend(logger, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	store := ledger.New(be.Open, ledger.WithLogger(logger.WithComponent(log.ComponentLedger).Slog()))
	if err := store.Reload(ctx); err != nil {
		// The store opens lazily and retries on the next operation.
		logger.Warn("Initial load of the active day failed", log.FieldError, err)
	}

	opts := []services.Option{services.WithLogger(logger.WithComponent(log.ComponentEntry).Slog())}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("AMQP unavailable, trips will not be mirrored", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing trip events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	if cfg.ReminderLead > 0 {
		notifyLogger := logger.WithComponent(log.ComponentNotify).Slog()
		reminders := notify.NewTimerScheduler(notify.LogNotifier{Logger: notifyLogger}, notifyLogger)
		defer reminders.Close()
		opts = append(opts, services.WithReminders(reminders, cfg.ReminderLead))
	}

	entries := services.NewEntryService(store,
		parser.New(parser.WithLogger(logger.WithComponent(log.ComponentParser).Slog())),
		opts...)

	srv := apphttp.NewServer(":"+cfg.Port, store, entries, logger, apphttp.WithRateLimit(cfg.RateLimit))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting vozruta server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
