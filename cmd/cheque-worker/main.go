package main

import (
	"context"
	"os"
	"time"

	"imprimecheque/internal/amqp"
	"imprimecheque/internal/cli"
	"imprimecheque/internal/log"
	"imprimecheque/internal/register"
	"imprimecheque/internal/register/google"
	"imprimecheque/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting cheque-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	app, err := cli.BuildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to build application", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	var reg register.Appender
	if cfg.RegisterEnabled() {
		client, err := google.New(context.Background(), google.Config{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets register", log.FieldError, err)
			os.Exit(1)
		}
		reg = client
		logger.Info("Google Sheets register initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		reg = register.NewMemory()
		logger.Info("Google Sheets register disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	renderWorker := worker.NewRenderWorker(app.Service, reg, cfg.OutputDir, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	logger.Info("Consuming check issued messages", "queue", cfg.AMQPQueue, "output_dir", cfg.OutputDir)
	if err := cli.IgnoreCanceled(consumer.ConsumeCheckIssued(ctx, renderWorker.HandleCheckIssued)); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
