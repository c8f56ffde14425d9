// bilancio-worker consumes queued report jobs and regenerates reports.
package main

import (
	"context"
	"errors"
	"time"

	"bilancio/internal/cli"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting bilancio-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	renderer := cli.InitRenderer(context.Background(), logger, cfg)
	queue := cli.InitAMQP(logger, cfg)

	service := services.NewReportService(cfg.ClientsDir, repo, renderer, queue, cfg.BatchConcurrency)
	reportWorker := worker.NewReportWorker(service, queue)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := service.Close(); err != nil {
			logger.Error("Cleanup error", "error", err)
		}
	})

	logger.Info("Worker ready", "queue", cfg.AMQPQueue)
	if err := reportWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
