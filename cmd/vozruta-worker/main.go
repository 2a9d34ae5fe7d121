package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"vozruta/internal/amqp"
	"vozruta/internal/cli"
	"vozruta/internal/config"
	"vozruta/internal/log"
	gsheet "vozruta/internal/sheets/google"
	"vozruta/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger(log.ComponentWorker), (*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting vozruta-worker")

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	sheetsClient, err := gsheet.NewClient(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetBase:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuth: gsheet.OAuthConfig{
			ClientJSON: cfg.GoogleOAuthClientJSON,
			ClientFile: cfg.GoogleOAuthClientFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
		},
	}, logger.WithComponent(log.ComponentSheets).Slog())
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheetsClient, logger.WithComponent(log.ComponentWorker).Slog())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeMessages(gctx, syncWorker.Handlers())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
