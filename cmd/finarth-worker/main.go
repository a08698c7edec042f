package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finarth/internal/amqp"
	"finarth/internal/cli"
	"finarth/internal/log"
	"finarth/internal/market"
	"finarth/internal/worker"
)

const prefetch = 10

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting finarth-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	exporter, err := worker.NewExporter(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize holdings exporter", log.FieldError, err)
		os.Exit(1)
	}
	mailer := worker.NewMailer(cfg, logger)

	var provider market.Provider
	if cfg.PolygonAPIKey != "" {
		provider = market.NewPolygonProvider(cfg.PolygonAPIKey)
	}
	// Worker refreshes bypass the cache.
	quotes := market.NewService(provider, market.Options{CacheTTL: time.Minute}, logger)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 2*time.Minute)
	amqpClient, err := amqp.NewClient(connectCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 10, logger)
	cancelConnect()
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewEventWorker(repo, quotes, mailer, exporter, logger)

	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
	})

	go w.RunPeriodicRefresh(ctx, cfg.QuoteRefreshInterval)

	// Consumption ending outside shutdown exits non-zero.
	consumeFailed := make(chan struct{})
	go func() {
		err := amqpClient.Consume(ctx, prefetch, w.Handle)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}
		logger.Error("Message consumption failed", log.FieldError, err)
		close(consumeFailed)
		stop("message consumption failed")
	}()

	cli.WaitForShutdown(ctx, done)
	select {
	case <-consumeFailed:
		logger.Error("Worker stopped after consumer failure")
		repo.Close()
		os.Exit(1)
	default:
	}
	logger.Info("Worker shutdown complete")
}
